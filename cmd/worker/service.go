package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Config               *config.Config
	Logger               *logger.Logger
	DB                   pinger
	Redis                pinger
	PubSub               pinger
	NotificationConsumer consumer
}

type dependency struct {
	name string
	p    pinger
}

// Service gates the subscription consumers on their backing stores and
// keeps them running until shutdown.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers map[string]consumer
	heartbeat time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil || params.Logger == nil {
		return nil, errors.New("config and logger are required")
	}
	deps := []dependency{{"database", params.DB}, {"redis", params.Redis}, {"pubsub", params.PubSub}}
	for _, d := range deps {
		if d.p == nil {
			return nil, fmt.Errorf("%s client is required", d.name)
		}
	}
	if params.NotificationConsumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		logg:      params.Logger,
		deps:      deps,
		consumers: map[string]consumer{"notifications": params.NotificationConsumer},
		heartbeat: heartbeatInterval,
	}, nil
}

func (s *Service) ready(ctx context.Context) error {
	for _, d := range s.deps {
		if err := d.p.Ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", d.name), "worker dependency not ready", err)
			return fmt.Errorf("%s not ready: %w", d.name, err)
		}
	}
	return nil
}

// Run returns when ctx ends or the first consumer exits; the others are
// cancelled and awaited before returning.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker dependencies ready")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type exit struct {
		name string
		err  error
	}
	exits := make(chan exit, len(s.consumers))
	for name, c := range s.consumers {
		go func() { exits <- exit{name, c.Run(runCtx)} }()
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	var first error
	for pending := len(s.consumers); pending > 0; {
		select {
		case <-ticker.C:
			s.logg.Debug(ctx, "worker heartbeat")
		case e := <-exits:
			pending--
			if first == nil {
				first = e.err
				if e.err != nil && !errors.Is(e.err, context.Canceled) {
					s.logg.Error(s.logg.WithField(ctx, "consumer", e.name), "consumer stopped", e.err)
				}
			}
			cancel()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return first
}
