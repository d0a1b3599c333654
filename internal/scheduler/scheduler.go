package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"invoice-dashboard-go/internal/poller"
)

// Scheduler drives the reply poller on a fixed interval. Overlapping cycles
// are prevented by the cron chain: a tick that fires while a cycle is still
// in flight is skipped, not queued, so two cycles can never race on the same
// cursor row.
type Scheduler struct {
	cron     *cron.Cron
	entryID  cron.EntryID
	interval time.Duration
	poller   *poller.Poller
	ctx      context.Context
	cancel   context.CancelFunc

	// busy is the single-slot in-flight guard. The cron chain already skips
	// overlapping scheduled ticks; this also covers the startup run and
	// manual triggers, which bypass the chain.
	busy sync.Mutex

	mu        sync.RWMutex
	isRunning bool
	lastRun   time.Time
	lastError string
}

// NewScheduler creates a scheduler around one poller
func NewScheduler(intervalSeconds int, p *poller.Poller) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	cronLogger := cron.VerbosePrintfLogger(logrus.StandardLogger())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		interval: time.Duration(intervalSeconds) * time.Second,
		poller:   p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start schedules the poll job and fires one cycle immediately
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.runCycle)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	// First cycle at startup, off the scheduler goroutine.
	go s.runCycle()

	logrus.Infof("Reply poller scheduled every %s for mailbox %s", s.interval, s.poller.Mailbox())
	return nil
}

// Stop stops the scheduler and waits for an in-flight cycle to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Reply poller stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Reply poller stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastRun returns the start time of the most recent cycle
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// LastError returns the error of the most recent cycle, or "" if it succeeded
func (s *Scheduler) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// NextRun returns the time of the next scheduled cycle
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// RunOnce triggers a cycle outside the schedule (manual trigger endpoint)
func (s *Scheduler) RunOnce() {
	s.runCycle()
}

// runCycle is the cycle boundary: every poller error is logged and swallowed
// here so nothing propagates to the request-handling paths.
func (s *Scheduler) runCycle() {
	if !s.busy.TryLock() {
		logrus.Info("Reply poll cycle still in flight, skipping this tick")
		return
	}
	defer s.busy.Unlock()

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	err := s.poller.RunCycle(s.ctx)

	s.mu.Lock()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		logrus.Errorf("Reply poll cycle failed: %v", err)
	}
}
