package display

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/genricoloni/marquee/internal/domain"
	"go.uber.org/zap"
)

const frameFilename = "frame.png"

// File writes every frame to <output dir>/frame.png. The file is replaced
// atomically so readers never see a partial image.
type File struct {
	logger *zap.Logger
	dir    string
}

// NewFile creates a backend writing into the configured output directory
func NewFile(logger *zap.Logger, cfg domain.Config) (domain.Display, error) {
	f, err := newFile(logger, cfg)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func newFile(logger *zap.Logger, cfg domain.Config) (*File, error) {
	dir := cfg.GetOutputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &File{logger: logger, dir: dir}, nil
}

// UpdateAlbumArt is a no-op; the composited frame already contains the art
func (f *File) UpdateAlbumArt(_ context.Context, path string) error {
	f.logger.Debug("Album art available", zap.String("path", path))
	return nil
}

// Redraw encodes img as PNG and swaps it into place
func (f *File) Redraw(_ context.Context, img image.Image) error {
	_, err := f.write(img)
	return err
}

func (f *File) write(img image.Image) (string, error) {
	tmp, err := os.CreateTemp(f.dir, ".frame-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create frame file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write frame: %w", err)
	}

	outputPath := filepath.Join(f.dir, frameFilename)
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return "", fmt.Errorf("failed to replace frame: %w", err)
	}

	f.logger.Debug("Frame written", zap.String("path", outputPath))
	return outputPath, nil
}

func (f *File) Close() error {
	return nil
}
