package domain

import (
	"context"
	"image"
)

// Source produces now-playing updates from an audio source.
// Run blocks until ctx is cancelled or the source fails permanently.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// Monitor defines the interface for monitoring bus-based media players
// Implementations should handle D-Bus/MPRIS communication
type Monitor interface {
	// Start begins monitoring for media events
	// It should block until context is cancelled or an error occurs
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor
	Stop(ctx context.Context) error

	// Events returns a read-only channel that emits MediaMetadata
	// when media playback state changes
	Events() <-chan MediaMetadata
}

// Fetcher defines the interface for retrieving album artwork
type Fetcher interface {
	// Fetch downloads or reads image data from a URL or local path
	// Returns the raw image bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Compositor turns a state snapshot into a finished square image
type Compositor interface {
	Render(snap NowPlaying) (*image.NRGBA, error)
}

// Display is an output backend for finished frames.
//
//go:generate mockgen -destination=mocks/display_mock.go -package=mocks github.com/genricoloni/marquee/internal/domain Display
type Display interface {
	// UpdateAlbumArt receives the path of the raw art blob, for backends
	// that draw art themselves instead of using the composited frame
	UpdateAlbumArt(ctx context.Context, path string) error

	// Redraw takes ownership of img and puts it on screen
	Redraw(ctx context.Context, img image.Image) error

	Close() error
}

// Config defines the interface for application configuration
type Config interface {
	// GetOutputDir returns the directory for written frames and art
	GetOutputDir() string
}
