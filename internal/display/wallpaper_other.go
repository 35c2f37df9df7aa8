//go:build !linux

package display

import (
	"fmt"
	"runtime"

	"github.com/genricoloni/marquee/internal/domain"
	"go.uber.org/zap"
)

// NewWallpaper is only available on Linux desktops
func NewWallpaper(logger *zap.Logger, _ domain.Config) (domain.Display, error) {
	logger.Warn("Wallpaper display is not implemented for this platform")
	return nil, fmt.Errorf("wallpaper display not supported on %s", runtime.GOOS)
}
