package scheduler

import (
	"time"

	"github.com/arusnet/arus/internal/config"
)

// Config paces the scheduler. Batch sizes and the stale-session cutoff
// live in the hot-reloadable dispatch config, not here, so operators
// can tune them without a restart.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	LockTTL     time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Second,
		LockTTL:     5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.RunInterval,
		JobTimeout:  cfg.Scheduler.JobTimeout,
		LockTTL:     cfg.Scheduler.LockTTL,
		EnabledJobs: cfg.Scheduler.EnabledJobs,
	}.withDefaults()
}
