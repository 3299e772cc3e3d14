// Package job holds background jobs run on a cron schedule.
package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper removes expired sessions.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// SessionSweepJob deletes expired sessions from the session store.
type SessionSweepJob struct {
	sweeper Sweeper
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewSessionSweepJob creates a new session sweep job.
func NewSessionSweepJob(s Sweeper, log logrus.FieldLogger) *SessionSweepJob {
	return &SessionSweepJob{sweeper: s, log: log, timeout: time.Minute}
}

// Run sweeps once.
func (j *SessionSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		j.log.WithError(err).Warn("session sweep failed")
		return
	}
	if n > 0 {
		j.log.WithField("removed", n).Info("expired sessions removed")
	} else {
		j.log.Debug("session sweep found nothing to remove")
	}
}

// Schedule registers the sweep job on a new cron scheduler. The caller
// starts and stops it.
func Schedule(spec string, s Sweeper, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))
	if _, err := c.AddJob(spec, NewSessionSweepJob(s, log)); err != nil {
		return nil, err
	}
	return c, nil
}
