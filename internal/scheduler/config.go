package scheduler

import (
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

// Config controls the collection cadence.
type Config struct {
	RunInterval time.Duration
	RunOnStart  bool
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 24 * time.Hour,
		RunOnStart:  true,
	}
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = DefaultConfig().RunInterval
	}
	return c
}
