// Package display holds the output backends that receive finished frames.
package display

import (
	"fmt"
	"sort"
	"sync"

	"github.com/genricoloni/marquee/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Factory builds a backend from the application configuration
type Factory func(logger *zap.Logger, cfg domain.Config) (domain.Display, error)

// Registry maps configuration names to backend factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry holding the built-in backends
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{
			"dummy":     NewDummy,
			"file":      NewFile,
			"wallpaper": NewWallpaper,
		},
	}
}

// Register adds or replaces a backend
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names lists the registered backends in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named backends. If any fails, the ones already
// built are closed.
func (r *Registry) Build(logger *zap.Logger, cfg domain.Config, names []string) ([]domain.Display, error) {
	displays := make([]domain.Display, 0, len(names))
	for _, name := range names {
		r.mu.RLock()
		factory, ok := r.factories[name]
		r.mu.RUnlock()

		var (
			d   domain.Display
			err error
		)
		if !ok {
			err = fmt.Errorf("unknown display %q (available: %v)", name, r.Names())
		} else {
			d, err = factory(logger.Named(name), cfg)
		}
		if err != nil {
			return nil, multierr.Append(
				fmt.Errorf("failed to create display %q: %w", name, err),
				CloseAll(displays),
			)
		}

		logger.Info("Display backend created", zap.String("name", name))
		displays = append(displays, d)
	}
	return displays, nil
}

// CloseAll closes every display and combines their errors
func CloseAll(displays []domain.Display) error {
	var err error
	for _, d := range displays {
		err = multierr.Append(err, d.Close())
	}
	return err
}
