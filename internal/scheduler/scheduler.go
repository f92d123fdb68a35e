// Package scheduler provides the periodic cleanup cycle and cancellable
// delayed actions for the bot.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Deferrer schedules a single delayed action per key. Scheduling a key that
// already has a pending action replaces it; Cancel drops it before it fires.
type Deferrer interface {
	Defer(key string, delay time.Duration, fn func())
	Cancel(key string) bool
}

// Scheduler runs the 24-hour maintenance cycle and keyed delay timers.
type Scheduler struct {
	cron *cron.Cron

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a stopped Scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		timers: make(map[string]*time.Timer),
	}
}

// AddMaintenance registers fn to run immediately (the startup sweep) and
// then once per day.
func (s *Scheduler) AddMaintenance(name string, fn func(ctx context.Context)) error {
	job := func() {
		start := time.Now()
		fn(context.Background())
		slog.Info("maintenance job finished", "job", name, "took", time.Since(start))
	}
	if _, err := s.cron.AddFunc("@every 24h", job); err != nil {
		return err
	}
	go job()
	return nil
}

// Start begins the periodic cycle.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the periodic cycle and drops all pending delayed actions.
func (s *Scheduler) Stop() {
	s.cron.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

// Defer schedules fn to run after delay, keyed so it can be cancelled when
// the entity it targets goes away first.
func (s *Scheduler) Defer(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}

	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending action for key, reporting whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, key)
	return true
}
