//go:build linux

package display

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/genricoloni/marquee/internal/domain"
	"go.uber.org/zap"
)

// wallpaperMinInterval limits how often the setter process is spawned
const wallpaperMinInterval = 5 * time.Second

// setter is a desktop wallpaper command. "%s" in Args is replaced with the
// frame path.
type setter struct {
	Name   string
	Binary string
	Args   []string
}

// Ordered by preference within each environment
var setters = []setter{
	{Name: "swww", Binary: "swww", Args: []string{"img", "%s"}},
	{Name: "hyprpaper", Binary: "hyprctl", Args: []string{"hyprpaper", "wallpaper", ",%s"}},
	{Name: "swaybg", Binary: "swaybg", Args: []string{"-i", "%s", "-m", "fit"}},
	{Name: "gnome", Binary: "gsettings", Args: []string{"set", "org.gnome.desktop.background", "picture-uri-dark", "file://%s"}},
	{Name: "feh", Binary: "feh", Args: []string{"--bg-center", "%s"}},
	{Name: "nitrogen", Binary: "nitrogen", Args: []string{"--set-centered", "%s"}},
}

// Wallpaper writes frames like File and shows them as the desktop wallpaper
type Wallpaper struct {
	*File
	logger  *zap.Logger
	setter  setter
	lastSet time.Time
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWallpaper detects a wallpaper setter for the running desktop
func NewWallpaper(logger *zap.Logger, cfg domain.Config) (domain.Display, error) {
	s := detectSetter(logger, os.Getenv, commandExists)
	if s.Binary == "" {
		return nil, fmt.Errorf("no supported wallpaper command found on this system")
	}

	f, err := newFile(logger, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Wallpaper setter detected",
		zap.String("name", s.Name),
		zap.String("binary", s.Binary))

	return &Wallpaper{File: f, logger: logger, setter: s, run: runCommand}, nil
}

// detectSetter picks a setter from desktop environment hints, falling back
// to the first installed one
func detectSetter(logger *zap.Logger, getenv func(string) string, exists func(string) bool) setter {
	desktop := strings.ToLower(getenv("XDG_CURRENT_DESKTOP"))
	wayland := getenv("WAYLAND_DISPLAY") != "" || getenv("XDG_SESSION_TYPE") == "wayland"
	hyprland := getenv("HYPRLAND_INSTANCE_SIGNATURE") != ""

	logger.Debug("Detecting wallpaper setter",
		zap.String("desktop", desktop),
		zap.Bool("wayland", wayland),
		zap.Bool("hyprland", hyprland))

	var preferred []string
	switch {
	case hyprland:
		preferred = []string{"swww", "hyprpaper"}
	case strings.Contains(desktop, "gnome"):
		preferred = []string{"gnome"}
	case wayland:
		preferred = []string{"swww", "swaybg"}
	}

	for _, name := range preferred {
		for _, s := range setters {
			if s.Name == name && exists(s.Binary) {
				return s
			}
		}
	}
	for _, s := range setters {
		if exists(s.Binary) {
			return s
		}
	}
	return setter{}
}

func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Redraw writes the frame and, at most every wallpaperMinInterval, hands it
// to the setter
func (w *Wallpaper) Redraw(ctx context.Context, img image.Image) error {
	path, err := w.write(img)
	if err != nil {
		return err
	}
	if time.Since(w.lastSet) < wallpaperMinInterval {
		return nil
	}

	args := make([]string, len(w.setter.Args))
	for i, arg := range w.setter.Args {
		args[i] = strings.ReplaceAll(arg, "%s", path)
	}

	output, err := w.run(ctx, w.setter.Binary, args...)
	if err != nil {
		return fmt.Errorf("failed to set wallpaper with %s: %w (output: %s)",
			w.setter.Name, err, string(output))
	}
	w.lastSet = time.Now()

	w.logger.Debug("Wallpaper set",
		zap.String("command", w.setter.Name),
		zap.String("path", path))
	return nil
}
