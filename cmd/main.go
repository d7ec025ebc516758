package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"calgen/internal/cache"
	"calgen/internal/calendarific"
	"calgen/internal/config"
	"calgen/internal/generator"
	"calgen/internal/google"
	"calgen/internal/holidayapi"
	"calgen/internal/manifest"
	"calgen/internal/metrics"
	"calgen/internal/mixin"
	"calgen/internal/provider"
	"calgen/internal/publish"
)

// providerNames lists the supported CALGEN_PROVIDER values.
var providerNames = []string{"calendarific", "holidayapi", "google"}

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := newApp(generate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// newApp builds the CLI. Configuration flags are global, so they go before
// the command name: calgen --years 3 generate US=United States.
func newApp(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:      "calgen",
		Usage:     "Generate holiday calendars (.ics) and a manifest from a holiday data provider.",
		ArgsUsage: "[CODE=Name ...]",
		Flags:     configFlags(),
		Action:    action,
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "Fetch holidays and write one calendar per locale plus manifest.json.",
				ArgsUsage: "[CODE=Name ...]",
				Action:    action,
			},
			providersCommand(),
		},
	}
}

// configFlags binds one string flag to each configuration variable.
func configFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(config.Keys))
	for _, key := range config.Keys {
		flags = append(flags, &cli.StringFlag{
			Name:    config.FlagName(key),
			EnvVars: []string{key},
			Usage:   "see " + key,
		})
	}
	return flags
}

// loadConfig resolves the configuration from flags, which fall back to the environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.FromEnv(func(key string) string {
		return c.String(config.FlagName(key))
	})
}

// generate runs the generator once, or on CALGEN_SCHEDULE until cancelled.
func generate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.LogLevel)

	locales, err := cfg.Locales(c.Args().Slice())
	if err != nil {
		return err
	}

	p, err := newProvider(c.Context, logger, cfg.Provider, cfg.APIKey)
	if err != nil {
		return err
	}

	store, err := newCache(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	sink, err := newSink(logger, cfg)
	if err != nil {
		return err
	}

	var announcer manifest.Announcer
	if cfg.KafkaBrokers != "" {
		k := manifest.NewKafkaAnnouncer(cfg.KafkaBrokers, cfg.KafkaTopic, "calgen-manifest-latest")
		defer k.Close()
		announcer = k
	}

	mixins := mixin.None()
	if cfg.Mixins {
		mixins = mixin.Default()
	}

	reg := metrics.NewRegistry()
	opts := generator.Options{
		Years:       cfg.Years,
		Categories:  cfg.Categories,
		Pacing:      cfg.PacingDelay(),
		Cache:       store,
		Mixins:      mixins,
		Announcer:   announcer,
		Metrics:     reg,
		MetricsFile: cfg.MetricsFile,
	}

	run := func(ctx context.Context) error {
		runLogger := logger.With("run", uuid.NewString())
		g := generator.New(runLogger, p, sink, opts)
		_, err := g.Run(ctx, locales)
		return err
	}

	if cfg.Schedule == "" {
		return run(c.Context)
	}

	// Fail fast on configuration before waiting for the first tick.
	if err := generator.New(logger, p, sink, opts).Validate(locales); err != nil {
		return err
	}
	return watch(c.Context, logger, cfg.Schedule, run)
}

// watch runs fn on schedule until ctx is cancelled. Runs never overlap; a
// failed run is logged and the next one proceeds.
func watch(ctx context.Context, logger *slog.Logger, schedule string, fn func(context.Context) error) error {
	cl := cronLogger{logger}
	sched := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	if _, err := sched.AddFunc(schedule, func() {
		if err := fn(ctx); err != nil {
			logger.Error("Generation run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	logger.Info("Starting watcher.", "schedule", schedule)
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	logger.Info("Watcher stopped.")
	return nil
}

// cronLogger routes the scheduler's logs through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

func providersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List the supported providers and the locales each one serves.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("error")
			for _, name := range providerNames {
				// Listing locales never calls the API, so no key is needed.
				p, err := newProvider(c.Context, logger, name, "unused")
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%-13s %s\n", p.Name(), strings.Join(p.Locales(), " "))
				fmt.Fprintf(c.App.Writer, "%-13s %s\n", "", p.Attribution())
			}
			return nil
		},
	}
}

func newProvider(ctx context.Context, logger *slog.Logger, name, apiKey string) (provider.Provider, error) {
	switch name {
	case "calendarific":
		return calendarific.NewClient(logger, apiKey, "", nil), nil
	case "holidayapi":
		return holidayapi.NewClient(logger, apiKey, "", nil), nil
	case "google":
		client, err := google.NewClient(ctx, logger, apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q, want one of %s", name, strings.Join(providerNames, ", "))
	}
}

func newCache(cfg *config.Config) (cache.Store, error) {
	if cfg.CacheDir == "" {
		return nil, nil
	}
	switch cfg.CacheBackend {
	case config.CachePebble:
		return cache.NewPebbleStore(cfg.CacheDir, cfg.CacheTTL)
	default:
		return cache.NewFileStore(cfg.CacheDir, cfg.CacheTTL)
	}
}

func newSink(logger *slog.Logger, cfg *config.Config) (publish.Sink, error) {
	dir, err := publish.NewDirSink(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	if cfg.WebDAVURL == "" {
		return dir, nil
	}
	dav, err := publish.NewWebDAVSink(logger, cfg.WebDAVURL, cfg.WebDAVUsername, cfg.WebDAVPassword)
	if err != nil {
		return nil, err
	}
	return publish.MultiSink{dir, dav}, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
