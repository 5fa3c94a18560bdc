package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"eventpage/internal/backend"
	"eventpage/internal/cache"
	"eventpage/internal/capture"
	"eventpage/internal/config"
	appLog "eventpage/internal/log"
	"eventpage/internal/render"
	"eventpage/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(flags); err != nil {
		appLog.Error("eventpage failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	if err := config.LoadDotEnv(flags.envPath); err != nil {
		return fmt.Errorf("load %s: %w", flags.envPath, err)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if err := conf.ApplyEnv(); err != nil {
		return err
	}
	// CLI --listen overrides config file and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := appLog.ParseLevel(conf.Log.Level)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.Setup(os.Stderr, appLog.Format(conf.Log.Format), level)
	appLog.Info("eventpage starting", "version", version)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"api_base_url", conf.APIBaseURL,
		"refresh", conf.RefreshCron,
		"cache_backend", conf.Cache.Backend,
		"cache_ttl", conf.Cache.TTL.String(),
		"rate_limit_rps", conf.RateLimit.RequestsPerSecond,
		"calendar_date", conf.Calendar.Date,
		"capture_enabled", conf.Capture.Enabled,
		"basic_auth", conf.BasicAuth != nil,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openCache(ctx, conf)
	if err != nil {
		return err
	}
	defer closeStore()

	var limiter *rate.Limiter
	if conf.RateLimit.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(conf.RateLimit.RequestsPerSecond), conf.RateLimit.Burst)
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL:  conf.APIBaseURL,
		Timeout:  conf.RequestTimeout,
		Cache:    store,
		CacheTTL: conf.Cache.TTL,
		Limiter:  limiter,
	})
	if err != nil {
		return err
	}

	renderer, err := render.New(render.Options{
		BreakID:              conf.Render.BreakID,
		MarkdownDescriptions: conf.Render.MarkdownDescriptions,
	})
	if err != nil {
		return err
	}

	srv, err := web.NewServer(conf, client, renderer, flags.debug)
	if err != nil {
		return err
	}

	ref := &refresher{
		fetcher: client,
		timeout: conf.RequestTimeout + capture.DefaultTimeoutSec*time.Second,
	}
	if conf.Capture.Enabled {
		ref.capture = previewCapturer(conf)
	}

	if flags.once {
		// A single warm/capture cycle needs the page served locally.
		serveCtx, cancelServe := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Serve(serveCtx) }()
		runErr := ref.run(ctx)
		cancelServe()
		if err := <-errCh; err != nil {
			return err
		}
		return runErr
	}

	c := cron.New(cron.WithLogger(cronLogger{}))
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := ref.run(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	// Prime the cache and preview without waiting for the first tick.
	go func() {
		time.Sleep(time.Second)
		if err := ref.run(ctx); err != nil {
			appLog.Error("initial refresh failed", err)
		}
	}()

	err = srv.Serve(ctx)
	appLog.Info("eventpage exiting")
	return err
}

func parseFlags(args []string) (flagConfig, error) {
	var cfg flagConfig

	fs := pflag.NewFlagSet("eventpage", pflag.ContinueOnError)
	fs.StringVarP(&cfg.configPath, "config", "c", "/etc/eventpage/config.yaml", "path to config file")
	fs.StringVar(&cfg.envPath, "env-file", ".env", "optional dotenv file with EVENTPAGE_* overrides")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	fs.BoolVar(&cfg.once, "once", false, "run one refresh (and capture, if enabled) cycle and exit")
	fs.BoolVar(&cfg.debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openCache builds the configured response cache and its release function.
func openCache(ctx context.Context, conf *config.Config) (cache.Provider, func(), error) {
	switch conf.Cache.Backend {
	case config.CacheRedis:
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     conf.Cache.Redis.Addr,
			Password: conf.Cache.Redis.Password,
			DB:       conf.Cache.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, func() {
			if err := r.Close(); err != nil {
				appLog.Error("failed to close redis cache", err)
			}
		}, nil
	case config.CacheNone:
		return cache.Nop{}, func() {}, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}

// previewCapturer screenshots the locally served index page.
func previewCapturer(conf *config.Config) func(context.Context) error {
	opts := capture.CaptureOptions{
		URL:        "http://" + localAddr(conf.Listen) + "/",
		OutputPath: conf.Capture.OutputPath,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return func(ctx context.Context) error {
		return capture.CapturePagePNG(ctx, opts)
	}
}

// cronLogger routes cron's own messages through appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
