package shairport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/genricoloni/marquee/internal/state"
	"go.uber.org/zap"
)

const (
	// DefaultPipe is where shairport-sync writes its metadata
	DefaultPipe = "/tmp/shairport-sync-metadata"

	defaultEmptyReadCeiling = 100
	defaultStallBackoff     = 250 * time.Millisecond
)

// Options configures a Source
type Options struct {
	Pipe             string
	MaxFrameSize     int
	EmptyReadCeiling int
	StallBackoff     time.Duration
}

// Source reads the shairport-sync metadata pipe and applies decoded events
// to the now-playing store.
type Source struct {
	logger *zap.Logger
	store  *state.Store
	opts   Options
	open   func(path string) (io.ReadCloser, error)

	mu       sync.Mutex
	reader   io.ReadCloser
	splitter *Splitter
}

// NewSource creates a pipe source. The pipe is opened lazily by Run.
func NewSource(logger *zap.Logger, store *state.Store, opts Options) *Source {
	if opts.Pipe == "" {
		opts.Pipe = DefaultPipe
	}
	if opts.EmptyReadCeiling <= 0 {
		opts.EmptyReadCeiling = defaultEmptyReadCeiling
	}
	if opts.StallBackoff <= 0 {
		opts.StallBackoff = defaultStallBackoff
	}
	return &Source{
		logger: logger,
		store:  store,
		opts:   opts,
		open:   openPipe,
	}
}

// openPipe opens a FIFO without waiting for a writer to appear
func openPipe(path string) (io.ReadCloser, error) {
	return os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
}

// Name identifies the source in configuration and logs
func (s *Source) Name() string {
	return "shairport"
}

// Run opens the pipe and ingests metadata until ctx is cancelled.
// Read failures close the pipe so it is reopened on the next pass.
func (s *Source) Run(ctx context.Context) error {
	s.logger.Info("Shairport metadata source started", zap.String("pipe", s.opts.Pipe))

	// Closing the pipe is the only way to unblock a pending read
	stop := context.AfterFunc(ctx, s.closeReader)
	defer stop()
	defer s.closeReader()

	for {
		if ctx.Err() != nil {
			s.logger.Info("Shairport metadata source stopped")
			return ctx.Err()
		}

		if err := s.ensureOpen(); err != nil {
			s.logger.Warn("Failed to open metadata pipe",
				zap.String("pipe", s.opts.Pipe),
				zap.Error(err))
			s.wait(ctx)
			continue
		}

		applied, err := s.Poll(ctx)
		switch {
		case errors.Is(err, ErrStalled):
			s.logger.Debug("Metadata pipe idle, backing off",
				zap.Duration("backoff", s.opts.StallBackoff))
			s.wait(ctx)
		case err != nil && ctx.Err() == nil:
			s.logger.Warn("Metadata pipe read failed, reopening", zap.Error(err))
			s.closeReader()
			s.wait(ctx)
		default:
			s.logger.Debug("Metadata poll complete", zap.Int("events", applied))
		}
	}
}

// Poll pulls frames until the stream has stalled more than the configured
// number of times, applying every decodable event. It returns the number of
// events applied, and ErrStalled when none were.
func (s *Source) Poll(ctx context.Context) (int, error) {
	s.mu.Lock()
	splitter := s.splitter
	s.mu.Unlock()
	if splitter == nil {
		return 0, fmt.Errorf("metadata pipe not open")
	}

	applied := 0
	empty := 0
	for ctx.Err() == nil {
		frame, err := splitter.NextFrame()
		if err != nil {
			var frameErr *FrameError
			switch {
			case errors.Is(err, ErrStreamStalled):
				empty++
				if empty > s.opts.EmptyReadCeiling {
					if applied == 0 {
						return 0, ErrStalled
					}
					return applied, nil
				}
				continue
			case errors.As(err, &frameErr) && frameErr.Kind == FrameErrorOversized:
				s.logger.Warn("Discarding oversized metadata frame", zap.Error(err))
				continue
			default:
				return applied, err
			}
		}

		ev, err := Decode(frame)
		if err != nil {
			s.logger.Warn("Dropping undecodable metadata frame",
				zap.Int("bytes", len(frame)),
				zap.Error(err))
			continue
		}

		s.store.Apply(ev)
		applied++
		empty = 0
		s.logger.Debug("Metadata event applied",
			zap.String("type", ev.Type),
			zap.String("code", ev.Code),
			zap.Int("payload", len(ev.Payload)))
	}
	return applied, ctx.Err()
}

func (s *Source) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		return nil
	}

	r, err := s.open(s.opts.Pipe)
	if err != nil {
		return err
	}
	s.reader = r
	if s.splitter == nil {
		s.splitter = NewSplitter(r, ItemTerminator, s.opts.MaxFrameSize)
	} else {
		s.splitter.Reset(r)
	}
	return nil
}

func (s *Source) closeReader() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader == nil {
		return
	}
	if err := s.reader.Close(); err != nil {
		s.logger.Debug("Failed to close metadata pipe", zap.Error(err))
	}
	s.reader = nil
}

func (s *Source) wait(ctx context.Context) {
	t := time.NewTimer(s.opts.StallBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
