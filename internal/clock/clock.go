package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for components that make time-based decisions,
// so tests can advance it deterministically.
type Clock interface {
	Now() time.Time
}

// Module provides the system clock.
var Module = fx.Provide(NewSystemClock)

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
