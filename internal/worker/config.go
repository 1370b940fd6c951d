package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the session sweeper.
type Config struct {
	// Interval is how often expired sessions are purged.
	// Default: 1 hour
	Interval time.Duration

	// SweepTimeout bounds a single DeleteExpired call.
	// Default: 30 seconds
	SweepTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for a running sweep to finish.
	// Default: 10 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Hour,
		SweepTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Interval < time.Second {
		return fmt.Errorf("sweep interval must be at least 1 second, got %v", c.Interval)
	}
	if c.SweepTimeout < time.Second {
		return fmt.Errorf("sweep timeout must be at least 1 second, got %v", c.SweepTimeout)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	return nil
}
