package display

import (
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// fallbackSize is used when no active display can be queried
const fallbackSize = 240

// DetectSize returns the side of the largest square that fits the primary screen
func DetectSize(logger *zap.Logger) int {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		logger.Warn("No active displays detected, falling back to default size",
			zap.Int("size", fallbackSize))
		return fallbackSize
	}

	// Use primary monitor (index 0)
	bounds := screenshot.GetDisplayBounds(0)
	size := min(bounds.Dx(), bounds.Dy())
	if size <= 0 {
		return fallbackSize
	}

	logger.Info("Screen resolution detected",
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
		zap.Int("size", size))
	return size
}
