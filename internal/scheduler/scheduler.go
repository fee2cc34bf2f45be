// Package scheduler drives periodic collection passes.
package scheduler

import (
	"context"
	"time"

	"github.com/subsidytracker/subsidytracker/internal/clock"
	"github.com/subsidytracker/subsidytracker/internal/collector/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Runner domain.Runner
	Clock  clock.Clock
	Log    *zap.Logger
	Config Config `optional:"true"`
}

type Scheduler struct {
	runner domain.Runner
	clock  clock.Clock
	log    *zap.Logger
	cfg    Config
}

func New(p Params) (*Scheduler, error) {
	if p.Runner == nil || p.Clock == nil || p.Log == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		runner: p.Runner,
		clock:  p.Clock,
		log:    p.Log.Named("scheduler"),
		cfg:    p.Config.withDefaults(),
	}, nil
}

// RunOnce triggers one full collection pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	started := s.clock.Now()
	total := s.runner.RunAll(ctx)
	s.log.Info("scheduled collection pass done",
		zap.Int("collected", total),
		zap.Duration("elapsed", s.clock.Now().Sub(started)),
	)
}

// RunForever runs passes on the configured interval until the context
// is cancelled. The first pass is immediate when RunOnStart is set.
func (s *Scheduler) RunForever(ctx context.Context) {
	if s.cfg.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.RunOnce(ctx)
	}
}
