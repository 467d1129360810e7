package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"TickerSage/internal/conversation"
	"TickerSage/internal/events"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	sweepSpec    = "@every 5m"
	watchdogSpec = "@every 1m"
)

// Scheduler manages the periodic jobs: conversation sweep, idle watchdog,
// and the earnings-event sync.
type Scheduler struct {
	Cron          *cron.Cron
	Conversations *conversation.Store
	Syncer        *events.Syncer
	Ctx           context.Context

	idleTimeout  time.Duration
	onIdle       func()
	lastActivity atomic.Int64 // unix nano
}

// NewScheduler creates a Scheduler. onIdle is invoked once the process has
// seen no inbound activity for idleTimeout; it should trigger shutdown.
func NewScheduler(ctx context.Context, convs *conversation.Store, syncer *events.Syncer,
	idleTimeout time.Duration, onIdle func()) *Scheduler {
	s := &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Conversations: convs,
		Syncer:        syncer,
		Ctx:           ctx,
		idleTimeout:   idleTimeout,
		onIdle:        onIdle,
	}
	s.TouchActivity()
	return s
}

// TouchActivity resets the idle clock. Called on every inbound message.
func (s *Scheduler) TouchActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// RegisterAll registers the sweep, watchdog, and earnings-sync tasks.
func (s *Scheduler) RegisterAll(syncCron string) error {
	if _, err := s.Cron.AddFunc(sweepSpec, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	if _, err := s.Cron.AddFunc(watchdogSpec, s.watchdogTask); err != nil {
		return fmt.Errorf("register watchdog task: %w", err)
	}
	if _, err := s.Cron.AddFunc(syncCron, s.syncTask); err != nil {
		return fmt.Errorf("register earnings sync task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Info("scheduler stopped")
}

// RunSyncNow executes the earnings sync immediately (manual trigger /
// SYNC_ON_START).
func (s *Scheduler) RunSyncNow() {
	s.syncTask()
}

func (s *Scheduler) sweepTask() {
	s.Conversations.Sweep(time.Now())
}

func (s *Scheduler) watchdogTask() {
	last := time.Unix(0, s.lastActivity.Load())
	idle := time.Since(last)
	if idle <= s.idleTimeout {
		return
	}
	log.Infof("idle for %s, exceeding %s: shutting down", idle.Round(time.Second), s.idleTimeout)
	s.onIdle()
}

func (s *Scheduler) syncTask() {
	log.Info("running earnings event sync")
	s.Syncer.Sync(s.Ctx)
}
