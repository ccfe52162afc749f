package worker

import (
	"fmt"
	"time"
)

// MaxConcurrency caps worker goroutines. Receipt emails and purges are
// light; more goroutines would only hold more database connections.
const MaxConcurrency = 16

// Config tunes the job worker. cmd/server fills it from the WORKER_*
// environment variables on top of DefaultConfig.
type Config struct {
	Concurrency  int           // goroutines polling the jobs table
	PollInterval time.Duration // idle wait between polls
	JobTimeout   time.Duration // per-job context deadline

	// ShutdownTimeout bounds how long Stop waits for running jobs.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is how long a job may sit in 'running' before
	// startup recovery assumes its worker died and requeues it.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns the settings used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        5 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate rejects settings the worker cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1 || c.Concurrency > MaxConcurrency:
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, c.Concurrency)
	case c.PollInterval < time.Second:
		return fmt.Errorf("poll interval must be at least 1s, got %v", c.PollInterval)
	case c.JobTimeout < time.Second:
		return fmt.Errorf("job timeout must be at least 1s, got %v", c.JobTimeout)
	case c.ShutdownTimeout < time.Second:
		return fmt.Errorf("shutdown timeout must be at least 1s, got %v", c.ShutdownTimeout)
	case c.StaleJobThreshold < time.Minute:
		return fmt.Errorf("stale job threshold must be at least 1m, got %v", c.StaleJobThreshold)
	case c.StaleJobThreshold <= c.JobTimeout:
		return fmt.Errorf("stale job threshold (%v) must exceed job timeout (%v)", c.StaleJobThreshold, c.JobTimeout)
	}
	return nil
}
