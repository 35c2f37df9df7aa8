// Package config loads the daemon configuration from defaults, the
// environment, an optional YAML file and command line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "MARQUEE_"

	defaultOutputDir        = "/tmp/marquee"
	defaultPipe             = "/tmp/shairport-sync-metadata"
	defaultSupersample      = 2
	defaultBlurRadius       = 15
	defaultMaxFrameBytes    = 16 * 1024 * 1024
	defaultEmptyReadCeiling = 100
	defaultStallBackoff     = 250 * time.Millisecond
	defaultRedrawInterval   = time.Second
)

// KnownSources are the metadata sources the daemon can run
var KnownSources = []string{"shairport", "mpris"}

// AppConfig holds application configuration
type AppConfig struct {
	Sources   []string `yaml:"sources"`
	Pipe      string   `yaml:"pipe"`
	Displays  []string `yaml:"displays"`
	OutputDir string   `yaml:"output_dir"`

	// Size is the output side in pixels; 0 detects it from the primary screen
	Size        int     `yaml:"size"`
	Supersample int     `yaml:"supersample"`
	Blur        bool    `yaml:"blur"`
	BlurRadius  float64 `yaml:"blur_radius"`
	// Font is an optional TTF/OTF path; the bundled bold face is used otherwise
	Font string `yaml:"font"`
	// Zero font sizes are derived from Size
	TitleSize  int `yaml:"title_size"`
	ArtistSize int `yaml:"artist_size"`
	AlbumSize  int `yaml:"album_size"`

	MaxFrameBytes    int           `yaml:"max_frame_bytes"`
	EmptyReadCeiling int           `yaml:"empty_read_ceiling"`
	StallBackoff     time.Duration `yaml:"stall_backoff"`
	RedrawInterval   time.Duration `yaml:"redraw_interval"`
}

// Options are command line overrides. Zero values leave the loaded value alone.
type Options struct {
	ConfigFile string
	Sources    []string
	Pipe       string
	Displays   []string
	OutputDir  string
	Size       int
	NoBlur     bool
}

// Default returns the built-in configuration
func Default() *AppConfig {
	return &AppConfig{
		Sources:          []string{"shairport"},
		Pipe:             defaultPipe,
		Displays:         []string{"file"},
		OutputDir:        defaultOutputDir,
		Supersample:      defaultSupersample,
		Blur:             true,
		BlurRadius:       defaultBlurRadius,
		MaxFrameBytes:    defaultMaxFrameBytes,
		EmptyReadCeiling: defaultEmptyReadCeiling,
		StallBackoff:     defaultStallBackoff,
		RedrawInterval:   defaultRedrawInterval,
	}
}

// NewAppConfig creates the configuration from every layer and validates it
func NewAppConfig(logger *zap.Logger, opts Options) (*AppConfig, error) {
	cfg := Default()

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if opts.ConfigFile != "" {
		if err := cfg.loadFile(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	cfg.applyOptions(opts)

	cfg.OutputDir = expandPath(cfg.OutputDir)
	cfg.Pipe = expandPath(cfg.Pipe)
	cfg.Font = expandPath(cfg.Font)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.Strings("sources", cfg.Sources),
		zap.Strings("displays", cfg.Displays),
		zap.String("pipe", cfg.Pipe),
		zap.String("outputDir", cfg.OutputDir),
		zap.Int("size", cfg.Size),
		zap.Bool("blur", cfg.Blur),
		zap.Duration("redrawInterval", cfg.RedrawInterval))

	return cfg, nil
}

func (c *AppConfig) applyEnv(getenv func(string) string) error {
	var errs []string
	str := func(key string, dst *string) {
		if v := getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(envPrefix + key); v != "" {
			*dst = splitList(v)
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(envPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q is not an integer", envPrefix, key, v))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(envPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q is not a boolean", envPrefix, key, v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(envPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q is not a duration", envPrefix, key, v))
				return
			}
			*dst = d
		}
	}

	list("SOURCES", &c.Sources)
	str("PIPE", &c.Pipe)
	list("DISPLAYS", &c.Displays)
	str("OUTPUT_DIR", &c.OutputDir)
	integer("SIZE", &c.Size)
	boolean("BLUR", &c.Blur)
	str("FONT", &c.Font)
	duration("REDRAW_INTERVAL", &c.RedrawInterval)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// loadFile overlays the YAML file at path; keys absent from the file keep
// their current value
func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyOptions(opts Options) {
	if len(opts.Sources) > 0 {
		c.Sources = opts.Sources
	}
	if opts.Pipe != "" {
		c.Pipe = opts.Pipe
	}
	if len(opts.Displays) > 0 {
		c.Displays = opts.Displays
	}
	if opts.OutputDir != "" {
		c.OutputDir = opts.OutputDir
	}
	if opts.Size > 0 {
		c.Size = opts.Size
	}
	if opts.NoBlur {
		c.Blur = false
	}
}

// Validate rejects values the daemon cannot run with
func (c *AppConfig) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for _, s := range c.Sources {
		if !slices.Contains(KnownSources, s) {
			return fmt.Errorf("unknown source %q (available: %v)", s, KnownSources)
		}
	}
	if slices.Contains(c.Sources, "shairport") && c.Pipe == "" {
		return fmt.Errorf("pipe is required for the shairport source")
	}
	if len(c.Displays) == 0 {
		return fmt.Errorf("at least one display is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.Size < 0 {
		return fmt.Errorf("size must be positive or 0 to detect, got %d", c.Size)
	}
	if c.Supersample < 1 || c.Supersample > 4 {
		return fmt.Errorf("supersample must be between 1 and 4, got %d", c.Supersample)
	}
	if c.Blur && c.BlurRadius <= 0 {
		return fmt.Errorf("blur_radius must be positive, got %v", c.BlurRadius)
	}
	if c.TitleSize < 0 || c.ArtistSize < 0 || c.AlbumSize < 0 {
		return fmt.Errorf("font sizes must not be negative")
	}
	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("max_frame_bytes must be positive, got %d", c.MaxFrameBytes)
	}
	if c.EmptyReadCeiling <= 0 {
		return fmt.Errorf("empty_read_ceiling must be positive, got %d", c.EmptyReadCeiling)
	}
	if c.StallBackoff <= 0 {
		return fmt.Errorf("stall_backoff must be positive, got %v", c.StallBackoff)
	}
	if c.RedrawInterval <= 0 {
		return fmt.Errorf("redraw_interval must be positive, got %v", c.RedrawInterval)
	}
	return nil
}

// GetOutputDir returns the directory for written frames and art
func (c *AppConfig) GetOutputDir() string {
	return c.OutputDir
}

// HasSource reports whether the named source is enabled
func (c *AppConfig) HasSource(name string) bool {
	return slices.Contains(c.Sources, name)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandPath expands environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
