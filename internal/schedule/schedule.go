// Package schedule runs periodic housekeeping on a cron schedule.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "taskcal/internal/log"
)

// Sweeper drops cached parse results unused for longer than maxAge and
// reports how many were removed.
type Sweeper interface {
	SweepParseMemo(maxAge time.Duration) int
}

// Scheduler wraps cron-based jobs. Specs use the standard five fields.
type Scheduler struct {
	cron *cron.Cron
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
	}
}

// ScheduleMemoSweep registers a job that sweeps entries idle for ttl.
func (s *Scheduler) ScheduleMemoSweep(expr string, ttl time.Duration, sw Sweeper) (cron.EntryID, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("sweep ttl must be positive")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return 0, fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	return s.cron.AddFunc(expr, func() {
		start := time.Now()
		n := sw.SweepParseMemo(ttl)
		appLog.Debug("parse memo swept", "removed", n, "ttl", ttl.String(), "took", time.Since(start).String())
	})
}

// Run executes a registered job immediately.
func (s *Scheduler) Run(id cron.EntryID) bool {
	e := s.cron.Entry(id)
	if !e.Valid() {
		return false
	}
	e.Job.Run()
	return true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
