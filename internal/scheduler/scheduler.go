// Package scheduler provides recurring-job scheduling for supbridge.
//
// It drives the sync loop's poll timer. Jobs scheduled here never overlap
// with themselves: a firing that arrives while the previous run is still in
// flight is skipped.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based recurring job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a scheduler. Panics in jobs are recovered;
// a job still running when its next firing arrives has that firing skipped.
func NewScheduler() *Scheduler {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DefaultLogger),
	))
	c.Start()
	return &Scheduler{cron: c}
}

// AddIntervalJob schedules task to run every interval. The first run happens
// one interval after scheduling, not immediately.
func (s *Scheduler) AddIntervalJob(interval time.Duration, task func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", interval)
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %s", interval), task)
}

// RemoveJob cancels a scheduled job. Unknown ids are ignored.
func (s *Scheduler) RemoveJob(id cron.EntryID) {
	s.cron.Remove(id)
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
