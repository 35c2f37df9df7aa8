// Package engine runs the ingestion and render paths of the daemon.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/genricoloni/marquee/internal/display"
	"github.com/genricoloni/marquee/internal/domain"
	"github.com/genricoloni/marquee/internal/state"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	defaultRedrawInterval = time.Second
	// Quiet period after a state change before a frame is rendered
	defaultRenderDebounce = 50 * time.Millisecond
	// Quiet period before fetching art, so skipping through tracks does not
	// download every cover
	defaultArtDebounce = 500 * time.Millisecond
)

// ArtSaver writes raw album art where display backends can read it
type ArtSaver interface {
	Save(data []byte, dir string) (string, error)
}

// Options tunes the engine loops
type Options struct {
	RedrawInterval time.Duration
	RenderDebounce time.Duration
	ArtDebounce    time.Duration
}

// Engine feeds every source into the now-playing store and pushes rendered
// frames to the display backends whenever the store changes.
type Engine struct {
	logger     *zap.Logger
	cfg        domain.Config
	store      *state.Store
	sources    []domain.Source
	monitor    domain.Monitor
	fetcher    domain.Fetcher
	art        ArtSaver
	compositor domain.Compositor
	displays   []domain.Display
	opts       Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a new orchestration engine. mon may be nil when the
// MPRIS source is disabled.
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	store *state.Store,
	sources []domain.Source,
	mon domain.Monitor,
	fetch domain.Fetcher,
	art ArtSaver,
	comp domain.Compositor,
	displays []domain.Display,
	opts Options,
) *Engine {
	if opts.RedrawInterval <= 0 {
		opts.RedrawInterval = defaultRedrawInterval
	}
	if opts.RenderDebounce <= 0 {
		opts.RenderDebounce = defaultRenderDebounce
	}
	if opts.ArtDebounce <= 0 {
		opts.ArtDebounce = defaultArtDebounce
	}
	return &Engine{
		logger:     logger,
		cfg:        cfg,
		store:      store,
		sources:    sources,
		monitor:    mon,
		fetcher:    fetch,
		art:        art,
		compositor: comp,
		displays:   displays,
		opts:       opts,
	}
}

// Start launches the source, monitor and render goroutines.
// It returns immediately (non-blocking).
func (e *Engine) Start(_ context.Context) error {
	e.logger.Info("Engine starting...",
		zap.Int("sources", len(e.sources)),
		zap.Bool("mpris", e.monitor != nil),
		zap.Int("displays", len(e.displays)))

	// The start context only covers startup; the loops live until Stop
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for _, src := range e.sources {
		e.wg.Add(1)
		go func(src domain.Source) {
			defer e.wg.Done()
			if err := src.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("Source failed", zap.String("source", src.Name()), zap.Error(err))
			}
		}(src)
	}

	if e.monitor != nil {
		e.wg.Add(2)
		go func() {
			defer e.wg.Done()
			if err := e.monitor.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("MPRIS monitor failed", zap.Error(err))
			}
		}()
		go e.monitorLoop(runCtx)
	}

	e.wg.Add(1)
	go e.renderLoop(runCtx)
	return nil
}

// monitorLoop applies MPRIS reports to the store. Art is fetched once the
// reported URL has been stable for the debounce period.
func (e *Engine) monitorLoop(ctx context.Context) {
	defer e.wg.Done()
	events := e.monitor.Events()

	timer := time.NewTimer(e.opts.ArtDebounce)
	timer.Stop()

	var lastArtURL, pendingArtURL string

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Monitor loop stopped")
			return

		case meta, ok := <-events:
			if !ok {
				e.logger.Info("Monitor events channel closed")
				return
			}
			e.applyMetadata(meta)

			if meta.ArtUrl != "" && meta.ArtUrl != lastArtURL {
				e.logger.Debug("Artwork changed, debouncing...",
					zap.String("title", meta.Title),
					zap.String("url", meta.ArtUrl))
				pendingArtURL = meta.ArtUrl
				timer.Reset(e.opts.ArtDebounce)
			}

		case <-timer.C:
			if pendingArtURL == "" {
				continue
			}
			if e.fetchArt(ctx, pendingArtURL) {
				lastArtURL = pendingArtURL
			}
			pendingArtURL = ""
		}
	}
}

// applyMetadata copies an MPRIS report into the store. An unknown volume
// keeps the previous value.
func (e *Engine) applyMetadata(meta domain.MediaMetadata) {
	e.store.Update(func(np *domain.NowPlaying) {
		np.Title = meta.Title
		np.Artist = meta.Artist
		np.Album = meta.Album
		np.State = meta.Status
		np.Duration = meta.Length
		np.Elapsed = meta.Position
		if meta.Volume >= 0 {
			np.Volume = meta.Volume
		}
		np.Shuffle = meta.Shuffle
		np.Repeat = meta.Repeat
	})
}

func (e *Engine) fetchArt(ctx context.Context, url string) bool {
	data, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.logger.Error("Failed to fetch artwork", zap.String("url", url), zap.Error(err))
		return false
	}

	e.store.Update(func(np *domain.NowPlaying) {
		np.AlbumArt = data
		np.ArtPending = true
	})
	e.logger.Info("Artwork updated", zap.String("url", url), zap.Int("bytes", len(data)))
	return true
}

// renderLoop redraws after state changes settle, and advances the progress
// of a playing track every RedrawInterval
func (e *Engine) renderLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.opts.RedrawInterval)
	defer ticker.Stop()

	debounce := time.NewTimer(e.opts.RenderDebounce)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Render loop stopped")
			return

		case <-e.store.Changed():
			debounce.Reset(e.opts.RenderDebounce)

		case <-debounce.C:
			e.redraw(ctx)

		case <-ticker.C:
			e.advance(e.opts.RedrawInterval)
		}
	}
}

// advance moves the elapsed time of a playing track forward; Elapsed is
// only reported when the player's state changes
func (e *Engine) advance(d time.Duration) {
	snap := e.store.Snapshot()
	if snap.State != domain.StatePlaying || snap.Duration <= 0 || snap.Elapsed >= snap.Duration {
		return
	}
	e.store.Update(func(np *domain.NowPlaying) {
		if np.State == domain.StatePlaying {
			np.Elapsed += d.Seconds()
		}
	})
}

// redraw renders the current state and hands the frame to every display
func (e *Engine) redraw(ctx context.Context) {
	snap := e.store.ConsumeSnapshot()

	if snap.ArtPending && len(snap.AlbumArt) > 0 {
		path, err := e.art.Save(snap.AlbumArt, e.cfg.GetOutputDir())
		if err != nil {
			e.logger.Error("Failed to save album art", zap.Error(err))
		} else {
			for _, d := range e.displays {
				if err := d.UpdateAlbumArt(ctx, path); err != nil {
					e.logger.Warn("Display rejected album art", zap.Error(err))
				}
			}
		}
	}

	img, err := e.compositor.Render(snap)
	if err != nil {
		e.logger.Error("Failed to render frame", zap.Error(err))
		return
	}

	for _, d := range e.displays {
		if err := d.Redraw(ctx, img); err != nil {
			e.logger.Warn("Display redraw failed", zap.Error(err))
		}
	}

	e.logger.Debug("Frame rendered",
		zap.String("title", snap.Title),
		zap.String("state", string(snap.State)))
}

// Stop cancels every loop, waits for them and closes the displays
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")

	if e.cancel != nil {
		e.cancel()
	}

	var err error
	if e.monitor != nil {
		err = multierr.Append(err, e.monitor.Stop(ctx))
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
		e.logger.Warn("Timed out waiting for engine goroutines")
	}

	err = multierr.Append(err, display.CloseAll(e.displays))
	if err == nil {
		e.logger.Info("Engine stopped")
	}
	return err
}
