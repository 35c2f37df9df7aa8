package display

import (
	"context"
	"image"

	"github.com/genricoloni/marquee/internal/domain"
	"go.uber.org/zap"
)

// Dummy discards frames, logging what it would have shown
type Dummy struct {
	logger *zap.Logger
	frames int
}

// NewDummy creates a backend that only logs
func NewDummy(logger *zap.Logger, _ domain.Config) (domain.Display, error) {
	return &Dummy{logger: logger}, nil
}

func (d *Dummy) UpdateAlbumArt(_ context.Context, path string) error {
	d.logger.Debug("Album art updated", zap.String("path", path))
	return nil
}

func (d *Dummy) Redraw(_ context.Context, img image.Image) error {
	d.frames++
	d.logger.Debug("Frame received",
		zap.Int("frame", d.frames),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return nil
}

func (d *Dummy) Close() error {
	d.logger.Info("Dummy display closed", zap.Int("frames", d.frames))
	return nil
}
