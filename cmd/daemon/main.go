package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/genricoloni/marquee/internal/config"
	"github.com/genricoloni/marquee/internal/display"
	"github.com/genricoloni/marquee/internal/domain"
	"github.com/genricoloni/marquee/internal/engine"
	"github.com/genricoloni/marquee/internal/fetcher"
	"github.com/genricoloni/marquee/internal/monitor"
	"github.com/genricoloni/marquee/internal/processor"
	"github.com/genricoloni/marquee/internal/render"
	"github.com/genricoloni/marquee/internal/shairport"
	"github.com/genricoloni/marquee/internal/state"
)

// loggerOptions selects the logger flavour
type loggerOptions struct {
	Debug bool
}

// AppOptions is the dependency graph of the daemon. It expects a
// config.Options and a loggerOptions to be supplied.
var AppOptions = fx.Options(
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	fx.Provide(
		newLogger,
		config.NewAppConfig,
		asDomainConfig,
		state.NewStore,
		newArtProcessor,
		newCompositor,
		fx.Annotate(fetcher.NewHTTPFetcher, fx.As(new(domain.Fetcher))),
		display.NewRegistry,
		newDisplays,
		newSources,
		newMonitor,
		newEngine,
	),

	fx.Invoke(registerHooks),
)

func main() {
	app := &cli.App{
		Name:  "marquee",
		Usage: "Render now-playing metadata onto a small square display",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", EnvVars: []string{"MARQUEE_CONFIG"}},
			&cli.StringSliceFlag{Name: "source", Aliases: []string{"s"}, Usage: "metadata source (shairport, mpris); repeatable"},
			&cli.StringFlag{Name: "pipe", Aliases: []string{"p"}, Usage: "shairport-sync metadata pipe"},
			&cli.StringSliceFlag{Name: "display", Aliases: []string{"d"}, Usage: "display backend (dummy, file, wallpaper); repeatable"},
			&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "directory for frames and album art"},
			&cli.IntFlag{Name: "size", Usage: "output size in pixels, 0 to detect from the screen"},
			&cli.BoolFlag{Name: "no-blur", Usage: "show the album art unblurred"},
			&cli.BoolFlag{Name: "debug", Usage: "development logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	opts := config.Options{
		ConfigFile: c.String("config"),
		Sources:    c.StringSlice("source"),
		Pipe:       c.String("pipe"),
		Displays:   c.StringSlice("display"),
		OutputDir:  c.String("output-dir"),
		Size:       c.Int("size"),
		NoBlur:     c.Bool("no-blur"),
	}

	app := fx.New(
		AppOptions,
		fx.Supply(opts, loggerOptions{Debug: c.Bool("debug")}),
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return app.Stop(context.Background())
}

// newLogger creates a new zap logger instance
func newLogger(opts loggerOptions) (*zap.Logger, error) {
	if opts.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func asDomainConfig(cfg *config.AppConfig) domain.Config {
	return cfg
}

func newArtProcessor(logger *zap.Logger, cfg *config.AppConfig) *processor.ArtProcessor {
	return processor.NewArtProcessor(logger.Named("processor"), processor.ProcessorConfig{
		Blur:       cfg.Blur,
		BlurRadius: cfg.BlurRadius,
	})
}

func newCompositor(logger *zap.Logger, cfg *config.AppConfig, art *processor.ArtProcessor) (domain.Compositor, error) {
	size := cfg.Size
	if size == 0 {
		size = display.DetectSize(logger)
	}

	opts := render.Options{
		Size:        size,
		Supersample: cfg.Supersample,
		TitleSize:   cfg.TitleSize,
		ArtistSize:  cfg.ArtistSize,
		AlbumSize:   cfg.AlbumSize,
	}
	if cfg.Font != "" {
		f, err := render.LoadFont(cfg.Font)
		if err != nil {
			return nil, err
		}
		opts.Typeface = f
	}

	comp, err := render.NewCompositor(logger.Named("compositor"), opts, art)
	if err != nil {
		return nil, err
	}
	return comp, nil
}

func newDisplays(logger *zap.Logger, cfg *config.AppConfig, registry *display.Registry) ([]domain.Display, error) {
	return registry.Build(logger.Named("display"), cfg, cfg.Displays)
}

func newSources(logger *zap.Logger, cfg *config.AppConfig, store *state.Store) []domain.Source {
	var sources []domain.Source
	if cfg.HasSource("shairport") {
		sources = append(sources, shairport.NewSource(logger.Named("shairport"), store, shairport.Options{
			Pipe:             cfg.Pipe,
			MaxFrameSize:     cfg.MaxFrameBytes,
			EmptyReadCeiling: cfg.EmptyReadCeiling,
			StallBackoff:     cfg.StallBackoff,
		}))
	}
	return sources
}

// newMonitor returns nil when the MPRIS source is disabled
func newMonitor(logger *zap.Logger, cfg *config.AppConfig) domain.Monitor {
	if !cfg.HasSource("mpris") {
		return nil
	}
	return monitor.NewMprisMonitor(logger.Named("mpris"))
}

func newEngine(
	logger *zap.Logger,
	cfg *config.AppConfig,
	store *state.Store,
	sources []domain.Source,
	mon domain.Monitor,
	fetch domain.Fetcher,
	art *processor.ArtProcessor,
	comp domain.Compositor,
	displays []domain.Display,
) *engine.Engine {
	return engine.NewEngine(logger.Named("engine"), cfg, store, sources, mon, fetch, art, comp, displays,
		engine.Options{RedrawInterval: cfg.RedrawInterval})
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Marquee daemon started")
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			return eng.Stop(ctx)
		},
	})
}
