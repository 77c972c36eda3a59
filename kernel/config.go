package kernel

import (
	"go.uber.org/zap"

	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// Config holds the settings a Kernel is created with. They survive Reset.
type Config struct {
	// Logger receives the kernel log. Defaults to a no-op logger.
	Logger *zap.Logger

	// Workers is the number of goroutines that integrate neurons within a
	// step. 1 integrates sequentially.
	Workers int

	// TicsPerMs is the number of tics in one millisecond.
	TicsPerMs int64

	// Resolution is the initial step length in milliseconds.
	Resolution float64
}

// DefaultConfig returns the default kernel settings.
func DefaultConfig() Config {
	return Config{
		Logger:     zap.NewNop(),
		Workers:    1,
		TicsPerMs:  timing.DefaultTicsPerMs,
		Resolution: timing.DefaultResolution,
	}
}

// An Option changes a Config.
type Option func(c *Config) error

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return simerr.Configf("logger cannot be nil")
		}
		c.Logger = logger
		return nil
	}
}

// WithWorkers sets the number of goroutines used to integrate neurons.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return simerr.Configf("workers must be at least 1, got %d", n)
		}
		c.Workers = n
		return nil
	}
}

// WithTicsPerMs sets the tic base of the clock.
func WithTicsPerMs(tics int64) Option {
	return func(c *Config) error {
		if tics <= 0 {
			return simerr.Configf("tics per ms must be positive, got %d", tics)
		}
		c.TicsPerMs = tics
		return nil
	}
}

// WithResolution sets the initial step length in milliseconds.
func WithResolution(ms float64) Option {
	return func(c *Config) error {
		c.Resolution = ms
		return nil
	}
}

func (c Config) newClock() (*timing.Clock, error) {
	return timing.NewClockWithBase(c.TicsPerMs, c.Resolution)
}
