package processor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	defaultBlurRadius = 15.0
	artBasename       = "current"
)

// ProcessorConfig holds configuration for album art processing
type ProcessorConfig struct {
	// Blur softens the art layer behind the overlay
	Blur       bool
	BlurRadius float64
}

// ArtProcessor turns raw album art bytes into the compositor's background layer
type ArtProcessor struct {
	logger *zap.Logger
	config ProcessorConfig
}

// NewArtProcessor creates a new album art processor
func NewArtProcessor(logger *zap.Logger, cfg ProcessorConfig) *ArtProcessor {
	if cfg.BlurRadius <= 0 {
		cfg.BlurRadius = defaultBlurRadius
	}
	return &ArtProcessor{logger: logger, config: cfg}
}

// Prepare decodes art and fills a size x size square with it, cropping the
// centre of non-square art, then blurs it when configured.
func (p *ArtProcessor) Prepare(imageData []byte, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid layer size %d", size)
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Validate image dimensions to prevent division by zero
	bounds := img.Bounds()
	if bounds.Dy() == 0 || bounds.Dx() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	p.logger.Debug("Preparing art layer",
		zap.Int("srcW", bounds.Dx()),
		zap.Int("srcH", bounds.Dy()),
		zap.Int("size", size),
		zap.Bool("blur", p.config.Blur))

	layer := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
	if p.config.Blur {
		layer = imaging.Blur(layer, p.config.BlurRadius)
	}
	return layer, nil
}

// Save writes the raw art bytes into dir for display backends that draw art
// themselves, and returns the absolute path. The extension follows the
// detected image format.
func (p *ArtProcessor) Save(imageData []byte, dir string) (string, error) {
	ext := ".art"
	if _, format, err := image.DecodeConfig(bytes.NewReader(imageData)); err == nil {
		switch format {
		case "jpeg":
			ext = ".jpg"
		case "png":
			ext = ".png"
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, artBasename+ext)
	if err := os.WriteFile(outputPath, imageData, 0644); err != nil {
		return "", fmt.Errorf("failed to write album art: %w", err)
	}

	p.logger.Info("Album art written",
		zap.String("path", outputPath),
		zap.Int("size", len(imageData)))

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return outputPath, nil // Return relative path if abs fails
	}
	return absPath, nil
}
