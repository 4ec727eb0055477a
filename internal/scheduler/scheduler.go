package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSweepSpec      = "*/5 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
)

// Sweeper removes sessions idle for longer than ttl.
type Sweeper interface {
	Sweep(ttl time.Duration) (int, error)
}

type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	sessions Sweeper
	spec     string
	ttl      time.Duration
	log      *slog.Logger
}

func New(
	ctx context.Context,
	sessions Sweeper,
	spec string,
	ttl time.Duration,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	if spec == "" {
		spec = DefaultSweepSpec
	}

	return &Scheduler{
		ctx:      ctx,
		cron:     c,
		sessions: sessions,
		spec:     spec,
		ttl:      ttl,
		log:      log,
	}
}

func (s *Scheduler) Spec() string {
	return s.spec
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweepSessions); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop stops the cron and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepSessions() {
	select {
	case <-s.ctx.Done():
		s.log.InfoContext(s.ctx, "Scheduler context is done",
			"error", s.ctx.Err())
		return
	default:
	}

	evicted, err := s.sessions.Sweep(s.ttl)
	if err != nil {
		s.log.ErrorContext(s.ctx, "Failed to close evicted sessions",
			"error", err,
			"evicted", evicted,
			"ttl", s.ttl)
	}

	if evicted > 0 {
		s.log.InfoContext(s.ctx, "Idle sessions are swept",
			"evicted", evicted,
			"ttl", s.ttl)
	}
}
