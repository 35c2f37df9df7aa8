package domain

// PlaybackState represents the transport state of the audio source
type PlaybackState string

const (
	// StateUnknown is the state before any source has reported one
	StateUnknown PlaybackState = "unknown"
	// StatePlaying indicates the media is currently playing
	StatePlaying PlaybackState = "playing"
	// StatePaused indicates the media is paused
	StatePaused PlaybackState = "paused"
	// StateStopped indicates the media is stopped
	StateStopped PlaybackState = "stopped"
)

// NowPlaying is the aggregate shown on the display.
// Values are stored as reported by the source; clamping happens at render time.
type NowPlaying struct {
	Title  string
	Artist string
	Album  string

	// Elapsed and Duration are in seconds
	Elapsed  float64
	Duration float64

	// Volume is nominally 0-100
	Volume  int
	Shuffle bool
	Repeat  bool
	State   PlaybackState

	// AlbumArt holds raw image bytes. The slice is replaced, never modified
	// in place, so snapshots may share it.
	AlbumArt []byte
	// ArtPending is set when AlbumArt changes and cleared once consumed
	ArtPending bool
}

// NewNowPlaying returns the startup defaults
func NewNowPlaying() NowPlaying {
	return NowPlaying{State: StateUnknown}
}

// MediaMetadata is a point-in-time report from a bus-based player (MPRIS)
type MediaMetadata struct {
	// Player is the well-known bus name of the reporting player
	Player string
	Title  string
	Artist string
	Album  string
	// ArtUrl is the URL or local path to the album artwork
	ArtUrl string
	Status PlaybackState

	// Length and Position are in seconds; zero when the player did not report them
	Length   float64
	Position float64
	// Volume is 0-100, or -1 when unknown
	Volume  int
	Shuffle bool
	Repeat  bool
}
