package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subsidytracker/subsidytracker/internal/collector/domain"
	"go.uber.org/zap"
)

type stubCollector struct {
	name      string
	collected int
	err       error
	panics    bool
	calls     int
}

func (s *stubCollector) SourceName() string { return s.name }

func (s *stubCollector) Collect(ctx context.Context) (int, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.collected, s.err
}

func TestRunAll_VisitsAllSourcesInOrder(t *testing.T) {
	first := &stubCollector{name: "PublicDataPortal", collected: 10}
	second := &stubCollector{name: "YouthCenter", collected: 5}
	third := &stubCollector{name: "Bokjiro", collected: 2}

	r := NewRunner([]domain.Collector{first, second, third}, 0, zap.NewNop())

	total := r.RunAll(context.Background())
	assert.Equal(t, 17, total)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}

func TestRunAll_FailureDoesNotStopOthers(t *testing.T) {
	failing := &stubCollector{name: "PublicDataPortal", err: errors.New("upstream down")}
	panicking := &stubCollector{name: "YouthCenter", panics: true}
	healthy := &stubCollector{name: "Bokjiro", collected: 3}

	r := NewRunner([]domain.Collector{failing, panicking, healthy}, 0, zap.NewNop())

	total := r.RunAll(context.Background())
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, healthy.calls)
}

func TestRunAll_CancelledContextStopsPass(t *testing.T) {
	first := &stubCollector{name: "PublicDataPortal", collected: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner([]domain.Collector{first}, 0, zap.NewNop())
	total := r.RunAll(ctx)
	assert.Zero(t, total)
	assert.Zero(t, first.calls)
}

func TestRunOne_MatchesCaseInsensitively(t *testing.T) {
	c := &stubCollector{name: "YouthCenter", collected: 7}
	r := NewRunner([]domain.Collector{c}, 0, zap.NewNop())

	collected, err := r.RunOne(context.Background(), "youthcenter")
	require.NoError(t, err)
	assert.Equal(t, 7, collected)
}

func TestRunOne_UnknownSource(t *testing.T) {
	r := NewRunner([]domain.Collector{&stubCollector{name: "Bokjiro"}}, 0, zap.NewNop())

	_, err := r.RunOne(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownSource)
}

func TestSources_ReturnsRegistrationOrder(t *testing.T) {
	r := NewRunner([]domain.Collector{
		&stubCollector{name: "PublicDataPortal"},
		&stubCollector{name: "YouthCenter"},
		&stubCollector{name: "Bokjiro"},
	}, 0, zap.NewNop())

	assert.Equal(t, []string{"PublicDataPortal", "YouthCenter", "Bokjiro"}, r.Sources())
}
