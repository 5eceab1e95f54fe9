package permits

import (
	"errors"
	"fmt"
	"time"
)

// TickerFunc builds the periodic signal driving the replenisher.
// It returns the tick channel and a function that stops the ticker.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// Config holds the basic configuration for a rate limiter instance
type Config struct {

	// Capacity is the maximum number of operations
	// admitted in a single window. It must be greater than zero.
	Capacity uint64

	// WindowPeriod is the width of a window.
	// At every window boundary the available permits are reset to Capacity,
	// regardless of how many were released in the meantime.
	WindowPeriod time.Duration

	// Time-related functions can be overriden to allow for easier testing
	// you should usually not override these.
	TimeFunc   func() time.Time
	TickerFunc TickerFunc

	// you can pass your custom logger if you'd like to
	// but it's not required
	Logger Logger
}

type CompositeConfig struct {

	// Limiters is a required parameter holding the configurations
	// of the single limiters you want to compose together.
	//
	// Permits are acquired in the given order.
	Limiters []Config

	// Time-related functions can be overriden to allow for easier testing
	// you should usually not override these.
	// They are shared by all the composed limiters.
	TimeFunc   func() time.Time
	TickerFunc TickerFunc

	// you can pass your custom logger if you'd like to
	// but it's not required
	Logger Logger
}

// New returns an instance of permits.RateLimiter
// built with the specified configuration.
//
// The replenisher is started immediately:
// the returned limiter must be stopped with Shutdown when no longer needed.
//
// A non-nil error matching ErrInvalidConfiguration is returned in case of invalid configuration.
func New(config *Config) (RateLimiter, error) {
	if config == nil {
		return nil, &InvalidConfiguration{Reason: "missing configuration"}
	}

	effectiveLogger := config.Logger
	if effectiveLogger == nil {
		effectiveLogger = newDefaultLogger()
	}

	parsedConfig, err := validateConfiguration(config)
	if err != nil {
		return nil, err
	}

	out := &rateLimiterDefaultImpl{
		Config:     parsedConfig,
		Logger:     effectiveLogger,
		TimeFunc:   config.TimeFunc,
		TickerFunc: config.TickerFunc,
		Available:  parsedConfig.Capacity,
		WaitQueue:  newWaitQueue(),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if out.TimeFunc == nil {
		out.TimeFunc = time.Now
	}
	if out.TickerFunc == nil {
		out.TickerFunc = defaultTicker
	}

	out.startReplenisher()

	effectiveLogger.Info(fmt.Sprintf(
		"rate limiter started with capacity %d every %v",
		parsedConfig.Capacity, parsedConfig.WindowPeriod,
	))

	return out, nil
}

// validateConfiguration will parse the user-provided configuration
// to the required format for runtime while also validating it.
func validateConfiguration(config *Config) (*rateLimiterEffectiveConfig, error) {
	if config.Capacity <= 0 {
		return nil, &InvalidConfiguration{
			Reason: fmt.Sprintf("Capacity should be greater than 0 (given: %v)", config.Capacity),
		}
	}

	if config.WindowPeriod <= 0 {
		return nil, &InvalidConfiguration{
			Reason: fmt.Sprintf("WindowPeriod should be greater than 0 (given: %v)", config.WindowPeriod),
		}
	}

	return &rateLimiterEffectiveConfig{
		Capacity:     config.Capacity,
		WindowPeriod: config.WindowPeriod,
	}, nil
}

// NewComposite returns an instance of permits.CompositeRateLimiter
// built with the specified configuration, combining multiple
// limiter policies into a single instance.
//
// A non-nil error matching ErrInvalidConfiguration is returned in case of invalid configuration.
func NewComposite(config *CompositeConfig) (CompositeRateLimiter, error) {
	if config == nil {
		return nil, &InvalidConfiguration{Reason: "missing configuration"}
	}

	effectiveLogger := config.Logger
	if effectiveLogger == nil {
		effectiveLogger = newDefaultLogger()
	}

	if len(config.Limiters) < 1 {
		return nil, &InvalidConfiguration{
			Reason: "composite rate limiter requires at least one component configuration",
		}
	}

	out := &compositeRateLimiterDefaultImpl{
		Logger:   effectiveLogger,
		TimeFunc: config.TimeFunc,
	}
	if out.TimeFunc == nil {
		out.TimeFunc = time.Now
	}

	limiters := make([]*rateLimiterDefaultImpl, 0, len(config.Limiters))

	abort := func(err error) (CompositeRateLimiter, error) {
		for _, built := range limiters {
			built.Shutdown()
		}
		return nil, err
	}

	for i, sub := range config.Limiters {
		if sub.TimeFunc != nil {
			return abort(&InvalidConfiguration{
				Reason: "cannot specify TimeFunc on a composed limiter. Please specify it on the parent limiter instead",
			})
		}
		sub.TimeFunc = out.TimeFunc

		if sub.TickerFunc != nil {
			return abort(&InvalidConfiguration{
				Reason: "cannot specify TickerFunc on a composed limiter. Please specify it on the parent limiter instead",
			})
		}
		sub.TickerFunc = config.TickerFunc

		if sub.Logger == nil {
			sub.Logger = effectiveLogger
		}

		limiter, err := New(&sub)
		if err != nil {
			var invalid *InvalidConfiguration
			if errors.As(err, &invalid) {
				return abort(&InvalidConfiguration{
					Reason: fmt.Sprintf("limiter at index %d: %s", i, invalid.Reason),
				})
			}
			return abort(fmt.Errorf("error building limiter at index %d: %w", i, err))
		}
		limiters = append(limiters, limiter.(*rateLimiterDefaultImpl))
	}

	out.Limiters = limiters

	return out, nil
}

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(d)
	return ticker.C, ticker.Stop
}
