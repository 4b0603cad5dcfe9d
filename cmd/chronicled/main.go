// Command chronicled serves the account service over HTTP. The event
// log backend, the optional archive tier and the listen address are
// selected through CHRONICLE_* environment variables
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chronicledb/chronicle"
	"github.com/chronicledb/chronicle/account"
	"github.com/chronicledb/chronicle/httpapi"
)

type config struct {
	Addr string `env:"CHRONICLE_ADDR" envDefault:":8080"`

	LogBackend    string `env:"CHRONICLE_LOG_BACKEND" envDefault:"memory"`
	RedisAddr     string `env:"CHRONICLE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"CHRONICLE_REDIS_PASSWORD"`
	RedisPrefix   string `env:"CHRONICLE_REDIS_PREFIX" envDefault:"chronicle"`
	RedisDB       int    `env:"CHRONICLE_REDIS_DB" envDefault:"0"`

	ArchiveBackend string `env:"CHRONICLE_ARCHIVE_BACKEND"`
	BoltPath       string `env:"CHRONICLE_BOLT_PATH" envDefault:"chronicle-archive.db"`
	PostgresDSN    string `env:"CHRONICLE_POSTGRES_DSN"`

	MaxRetries int `env:"CHRONICLE_MAX_RETRIES" envDefault:"16"`
	CacheSize  int `env:"CHRONICLE_CACHE_SIZE" envDefault:"4096"`

	ShutdownTimeout time.Duration `env:"CHRONICLE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fatal("parsing environment", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fatal("creating logger", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("chronicled exited", zap.Error(err))
	}
}

func run(cfg config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	hub := chronicle.NewHub()

	log, closeLog, err := openLog(cfg, hub)
	if err != nil {
		return err
	}
	defer closeLog()

	worker, closeArchive, err := startArchive(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}
	if worker != nil {
		defer closeArchive()
		defer worker.Stop()
	}

	svc := account.NewService(log, chronicle.Config{
		MaxRetries: cfg.MaxRetries,
		CacheSize:  cfg.CacheSize,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.NewServer(svc, logger).Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("log_backend", cfg.LogBackend),
			zap.String("archive_backend", cfg.ArchiveBackend),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), cfg.ShutdownTimeout,
	)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openLog(
	cfg config, hub *chronicle.Hub,
) (chronicle.EventLog, func(), error) {
	switch cfg.LogBackend {
	case "memory":
		return chronicle.NewMemoryLog(hub), func() {}, nil
	case "redis":
		log, err := chronicle.NewRedisLog(chronicle.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Prefix:   cfg.RedisPrefix,
			DB:       cfg.RedisDB,
		}, hub)
		if err != nil {
			return nil, nil, err
		}
		return log, func() { _ = log.Close() }, nil
	default:
		return nil, nil, errors.New(
			"unknown log backend: " + cfg.LogBackend,
		)
	}
}

func startArchive(
	ctx context.Context, cfg config, hub *chronicle.Hub, logger *zap.Logger,
) (*chronicle.ArchiveWorker, func(), error) {
	var (
		archiver chronicle.Archiver
		err      error
	)
	switch cfg.ArchiveBackend {
	case "":
		return nil, nil, nil
	case "bolt":
		archiver, err = chronicle.NewBoltArchiver(cfg.BoltPath)
	case "postgres":
		archiver, err = chronicle.NewPostgresArchiver(ctx, cfg.PostgresDSN)
	default:
		return nil, nil, errors.New(
			"unknown archive backend: " + cfg.ArchiveBackend,
		)
	}
	if err != nil {
		return nil, nil, err
	}

	worker := chronicle.NewArchiveWorker(
		archiver, hub, logger, chronicle.DefaultArchiveConfig(),
	)
	return worker, func() { _ = archiver.Close() }, nil
}

func fatal(msg string, err error) {
	os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	os.Exit(1)
}
