package scheduler

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// ReminderPass is implemented by the billing service: one scan over open
// orders, dispatching whatever is due.
type ReminderPass interface {
	RunReminderPass(ctx context.Context) error
}

// Runner fires a reminder pass on a fixed interval until the context is
// canceled. Failed passes are logged and retried on the next tick; the
// due-ness evaluation is idempotent, so overlapping or repeated passes are
// harmless.
type Runner struct {
	pass     ReminderPass
	interval time.Duration
}

func NewRunner(pass ReminderPass, interval time.Duration) (*Runner, error) {
	if pass == nil {
		return nil, errors.New("pass is nil")
	}

	if interval <= 0 {
		return nil, errors.New("interval is not positive")
	}

	return &Runner{pass: pass, interval: interval}, nil
}

func (r *Runner) Run(ctx context.Context) {
	log.WithField("interval", r.interval).Info("reminder runner started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reminder runner stopped")
			return
		case <-ticker.C:
			if err := r.pass.RunReminderPass(ctx); err != nil {
				log.WithError(err).Error("reminder pass failed")
			}
		}
	}
}
