package cron

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Jobs is the periodic work the scheduler drives.
type Jobs interface {
	RunFollowUps(ctx context.Context) int
	Prune()
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron      *cron.Cron
	jobs      Jobs
	sweepSpec string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler that runs the follow-up sweep on sweepSpec
// and prunes expired state every hour.
func NewScheduler(jobs Jobs, sweepSpec string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		jobs:      jobs,
		sweepSpec: sweepSpec,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.sweepSpec, func() {
		log.Println("[Cron] Running follow-up sweep...")
		s.runFollowUps()
	}); err != nil {
		return fmt.Errorf("schedule follow-up sweep %q: %w", s.sweepSpec, err)
	}

	// Run every hour - Drop expired prompts and join stamps
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		log.Println("[Cron] Running registry prune...")
		s.jobs.Prune()
	}); err != nil {
		return fmt.Errorf("schedule prune: %w", err)
	}

	s.cron.Start()
	log.Printf("[Cron] Scheduler started (sweep: %s)", s.sweepSpec)
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	log.Println("[Cron] Scheduler stopped")
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) runFollowUps() {
	if n := s.jobs.RunFollowUps(s.ctx); n > 0 {
		log.Printf("[Cron] Sent %d follow-up(s)", n)
	}
}

// ManualTrigger allows manual triggering of scheduled work (for testing)
func (s *Scheduler) ManualTrigger(checkType string) bool {
	switch checkType {
	case "followups":
		s.runFollowUps()
	case "prune":
		s.jobs.Prune()
	case "all":
		s.runFollowUps()
		s.jobs.Prune()
	default:
		return false
	}
	return true
}
