// Package poller drives long-running generation jobs to completion. A
// session periodically asks the gateway whether the job finished,
// rotates user-facing progress messages on a faster cadence, and
// force-fails jobs that outlive their deadline so nothing stays pending
// forever.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"mzassist/internal/logging"
)

// ErrTimedOut is reported when a job outlives the configured maximum
// polling duration.
var ErrTimedOut = errors.New("job polling exceeded the maximum duration")

// Default cadences, used when the config leaves a field zero.
const (
	DefaultStatusInterval  = 10 * time.Second
	DefaultMessageInterval = 5 * time.Second
	DefaultMaxDuration     = 10 * time.Minute
)

// Config sets the polling cadence for one session.
type Config struct {
	StatusInterval  time.Duration // how often the job status is checked
	MessageInterval time.Duration // how often the progress message rotates
	MaxDuration     time.Duration // force-fail bound
	Messages        []string      // progress messages, rotated in order
}

func (c Config) withDefaults() Config {
	if c.StatusInterval <= 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.MessageInterval <= 0 {
		c.MessageInterval = DefaultMessageInterval
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = DefaultMaxDuration
	}
	return c
}

// CheckFunc performs one status check. It returns true when the job
// reached a terminal state; a non-nil error is itself terminal and
// fails the session.
type CheckFunc func(ctx context.Context) (bool, error)

// Session is one running poll loop. Stop is safe to call any number of
// times from any goroutine.
type Session struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Start launches a poll loop for one job. onMessage receives each
// rotated progress message; onDone is invoked exactly once, with nil on
// completion or the terminal error otherwise. Neither callback is
// invoked after Stop.
func Start(ctx context.Context, cfg Config, check CheckFunc, onMessage func(string), onDone func(error)) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(ctx, cfg, check, onMessage, onDone)
	return s
}

// Stop cancels the session. Idempotent; a session that already
// finished is unaffected.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed when the loop has fully exited, after any terminal
// callback has run.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run(ctx context.Context, cfg Config, check CheckFunc, onMessage func(string), onDone func(error)) {
	defer close(s.done)

	statusTicker := time.NewTicker(cfg.StatusInterval)
	defer statusTicker.Stop()
	messageTicker := time.NewTicker(cfg.MessageInterval)
	defer messageTicker.Stop()
	deadline := time.NewTimer(cfg.MaxDuration)
	defer deadline.Stop()

	finish := func(err error) {
		if onDone != nil {
			onDone(err)
		}
	}

	msgIdx := 0
	for {
		select {
		case <-s.stop:
			logging.PollerDebug("Session stopped by caller")
			return
		case <-ctx.Done():
			finish(ctx.Err())
			return
		case <-deadline.C:
			logging.Poller("Job exceeded max duration %s, force-failing", cfg.MaxDuration)
			finish(ErrTimedOut)
			return
		case <-messageTicker.C:
			if onMessage != nil && len(cfg.Messages) > 0 {
				onMessage(cfg.Messages[msgIdx%len(cfg.Messages)])
				msgIdx++
			}
		case <-statusTicker.C:
			finished, err := check(ctx)
			if err != nil {
				finish(err)
				return
			}
			if finished {
				finish(nil)
				return
			}
		}
	}
}
