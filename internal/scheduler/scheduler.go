package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	pruneHistoryTimeout   = 5 * time.Minute
)

// Pruner deletes history rows created before a point in time.
type Pruner interface {
	DeleteSummariesBefore(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	spec      string
	retention time.Duration
	pruner    Pruner
	onPruned  func(n int64)
	now       func() time.Time
	log       *slog.Logger
}

// New returns a scheduler that prunes history older than retention on spec.
// onPruned may be nil.
func New(
	ctx context.Context,
	spec string,
	retention time.Duration,
	pruner Pruner,
	onPruned func(n int64),
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		spec:      spec,
		retention: retention,
		pruner:    pruner,
		onPruned:  onPruned,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.pruneHistory); err != nil {
		return fmt.Errorf("add prune job: %w", err)
	}

	s.cron.Start()

	return nil
}

// Stop stops the cron and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneHistory() {
	ctx, cancel := context.WithTimeout(s.ctx, pruneHistoryTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	if s.retention <= 0 {
		return
	}

	before := s.now().UTC().Add(-s.retention)

	n, err := s.pruner.DeleteSummariesBefore(ctx, before)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to prune history",
			"error", err,
			"before", before)
		return
	}

	if s.onPruned != nil {
		s.onPruned(n)
	}

	if n > 0 {
		s.log.InfoContext(ctx, "History is pruned",
			"deleted", n,
			"before", before)
	}
}
