package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Schedule decides when a task runs next.
type Schedule interface {
	// Next returns the first run time strictly after after.
	Next(after time.Time) time.Time
}

// ScheduleFunc adapts a function to Schedule.
type ScheduleFunc func(after time.Time) time.Time

// Next implements Schedule.
func (f ScheduleFunc) Next(after time.Time) time.Time { return f(after) }

// Every runs a task at a fixed interval from the previous run.
func Every(d time.Duration) Schedule {
	return ScheduleFunc(func(after time.Time) time.Time {
		return after.Add(d)
	})
}

// DailyAt runs a task once a day at hour:minute in loc. A nil loc means local time.
func DailyAt(hour, minute int, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.Local
	}
	return ScheduleFunc(func(after time.Time) time.Time {
		local := after.In(loc)
		next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if !next.After(local) {
			next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
		}
		return next
	})
}

// Task is a named unit of recurring work.
type Task struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

// Scheduler runs recurring tasks until its context is cancelled.
// Each task has its own goroutine; a slow task only delays itself.
type Scheduler struct {
	tasks  []Task
	logger *slog.Logger
	now    func() time.Time
}

// NewScheduler creates a scheduler over tasks. A nil logger uses slog.Default().
func NewScheduler(logger *slog.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		tasks:  tasks,
		logger: logger,
		now:    time.Now,
	}
}

// Tasks returns the registered tasks.
func (s *Scheduler) Tasks() []Task {
	return s.tasks
}

// Run starts every task and blocks until ctx is cancelled and all task
// goroutines have returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.loop(ctx, t)
		}(t)
	}

	s.logger.InfoContext(ctx, "scheduler started", "tasks", len(s.tasks))
	wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	for {
		now := s.now()
		next := t.Schedule.Next(now)
		s.logger.DebugContext(ctx, "task scheduled", "task", t.Name, "at", next)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, t)
		}
	}
}

// RunOnce runs the named task immediately.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	for _, t := range s.tasks {
		if t.Name == name {
			return s.execute(ctx, t)
		}
	}
	return NewCompanionError("RunOnce", fmt.Errorf("%w: task %q", ErrNotFound, name))
}

// execute runs t, logging its error and recovering a panic.
func (s *Scheduler) execute(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
			s.logger.ErrorContext(ctx, "task panicked", "task", t.Name, "panic", r)
		}
	}()

	start := s.now()
	if err = t.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "task failed", "task", t.Name, "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "task finished", "task", t.Name, "took", s.now().Sub(start))
	return nil
}
