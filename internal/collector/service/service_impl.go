package service

import (
	"context"
	"strings"
	"time"

	"github.com/subsidytracker/subsidytracker/internal/collector/domain"
	"go.uber.org/zap"
)

type runner struct {
	collectors []domain.Collector
	delay      time.Duration
	log        *zap.Logger
}

// NewRunner keeps the collectors in registration order; RunAll visits
// them in that order.
func NewRunner(collectors []domain.Collector, delay time.Duration, log *zap.Logger) domain.Runner {
	return &runner{
		collectors: collectors,
		delay:      delay,
		log:        log.Named("collector.runner"),
	}
}

// RunAll runs every registered collector sequentially and returns the
// total of newly collected items. One source failing or panicking never
// stops the rest of the pass.
func (r *runner) RunAll(ctx context.Context) int {
	r.log.Info("collection pass started", zap.Int("sources", len(r.collectors)))
	started := time.Now()

	total := 0
	for i, c := range r.collectors {
		if ctx.Err() != nil {
			r.log.Warn("collection pass cancelled", zap.String("source", c.SourceName()))
			break
		}
		total += r.runOne(ctx, c)

		if i < len(r.collectors)-1 {
			if err := domain.Wait(ctx, r.delay); err != nil {
				break
			}
		}
	}

	r.log.Info("collection pass finished",
		zap.Int("total_collected", total),
		zap.Duration("elapsed", time.Since(started)),
	)
	return total
}

func (r *runner) RunOne(ctx context.Context, sourceName string) (int, error) {
	for _, c := range r.collectors {
		if strings.EqualFold(c.SourceName(), sourceName) {
			return c.Collect(ctx)
		}
	}
	return 0, domain.ErrUnknownSource
}

func (r *runner) Sources() []string {
	names := make([]string, 0, len(r.collectors))
	for _, c := range r.collectors {
		names = append(names, c.SourceName())
	}
	return names
}

func (r *runner) runOne(ctx context.Context, c domain.Collector) (collected int) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("collector panicked", zap.String("source", c.SourceName()), zap.Any("panic", rec))
			collected = 0
		}
	}()

	collected, err := c.Collect(ctx)
	if err != nil {
		r.log.Error("collector failed", zap.String("source", c.SourceName()), zap.Error(err))
	}
	return collected
}
