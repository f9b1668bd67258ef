package server

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

type sessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor periodically deletes expired sessions.
type Janitor struct {
	purger   sessionPurger
	interval time.Duration
}

func NewJanitor(purger sessionPurger, interval time.Duration) *Janitor {
	return &Janitor{purger: purger, interval: interval}
}

func (j *Janitor) Start(ctx context.Context) error {
	log.Info("Starting session janitor", "interval", j.interval.String())
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if _, err := j.purger.PurgeExpiredSessions(ctx); err != nil {
			log.Error(err, "Session purge failed")
		}
	}, j.interval)
	return nil
}
