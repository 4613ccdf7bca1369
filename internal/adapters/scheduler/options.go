package scheduler

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Option configures a ResetScheduler.
type Option func(*ResetScheduler)

// WithSyncInterval sets how often jobs are reconciled with the registry.
func WithSyncInterval(d time.Duration) Option {
	return func(s *ResetScheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLocation sets the time zone cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *ResetScheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *ResetScheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
