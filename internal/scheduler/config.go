package scheduler

import (
	"time"

	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
)

// Config controls scheduler intervals and retention.
type Config struct {
	Enabled               bool
	RunInterval           time.Duration
	JobTimeout            time.Duration
	LockTTL               time.Duration
	SequenceRetentionDays int
}

func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		RunInterval:           5 * time.Minute,
		JobTimeout:            30 * time.Second,
		LockTTL:               time.Minute,
		SequenceRetentionDays: 90,
	}
}

func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	out.Enabled = cfg.Scheduler.Enabled
	out.RunInterval = cfg.Scheduler.Interval
	out.SequenceRetentionDays = cfg.Scheduler.SequenceRetentionDays
	return out.withDefaults()
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
	if c.SequenceRetentionDays <= 0 {
		c.SequenceRetentionDays = defaults.SequenceRetentionDays
	}
	return c
}
