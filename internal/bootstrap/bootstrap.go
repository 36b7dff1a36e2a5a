// Package bootstrap holds the start-up sequence shared by every long-running
// binary: env loading, config, logger, backing clients and signal handling.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/instance"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/migrate"
	"github.com/angelmondragon/tradeflow-backend/pkg/pubsub"
	"github.com/angelmondragon/tradeflow-backend/pkg/redis"
)

type closer struct {
	name  string
	close func() error
}

// Process is one running binary and the clients it opened.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
}

// Start loads .env and config for the given service kind and builds the
// process logger. The kind is exported before config is parsed so
// kind-specific validation sees it.
func Start(kind string) (*Process, error) {
	boot := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}
	if err := os.Setenv(config.EnvServiceKind, kind); err != nil {
		return nil, fmt.Errorf("export service kind: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newProcess(kind, cfg), nil
}

func newProcess(kind string, cfg *config.Config) *Process {
	cfg.Service.Kind = kind
	return &Process{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}
}

// Database opens the primary database and applies embedded migrations in dev.
func (p *Process) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	p.track("database", client.Close)
	if err := migrate.MaybeRunDev(ctx, p.Config, p.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	p.track("redis", client.Close)
	return client, nil
}

func (p *Process) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	p.track("pubsub", client.Close)
	return client, nil
}

func (p *Process) track(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, close: fn})
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// log fields.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return p.Logger.WithFields(ctx, p.fields()), stop
}

func (p *Process) fields() map[string]any {
	return map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Kind,
		"instance":    instance.ID("local"),
	}
}

// Close releases clients in reverse order of opening.
func (p *Process) Close() error {
	var errs error
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	p.closers = nil
	if errs != nil {
		p.Logger.Error(context.Background(), "error closing clients", errs)
	}
	return errs
}

// Fail logs err, releases clients and exits non-zero.
func (p *Process) Fail(ctx context.Context, msg string, err error) {
	p.Logger.Error(ctx, msg, err)
	_ = p.Close()
	os.Exit(1)
}

// Exit reports a start-up failure that happened before a Process existed.
func Exit(kind string, err error) {
	logger.New(logger.Options{ServiceName: kind}).Error(context.Background(), "startup failed", err)
	os.Exit(1)
}
