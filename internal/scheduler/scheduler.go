// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the body of a scheduled task. A returned error is logged and the
// next tick runs as usual.
type Job func(ctx context.Context) error

// Entry describes a registered job.
type Entry struct {
	Name     string
	Schedule string
	Next     time.Time
}

// Scheduler runs named jobs on cron schedules in a fixed time zone. A job
// never overlaps itself and a panic inside one is recovered and logged.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	entries map[cron.EntryID]Entry
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler evaluating schedules in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := slogLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:     ctx,
		stop:    cancel,
		entries: make(map[cron.EntryID]Entry),
	}
}

// Add registers job under name. The schedule is validated immediately.
func (s *Scheduler) Add(name, schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		slog.Debug("cron firing job", "name", name)
		start := time.Now()
		if err := job(s.ctx); err != nil {
			slog.Error("scheduled job failed", "name", name, "error", err)
			return
		}
		slog.Debug("scheduled job done", "name", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, schedule, err)
	}
	s.mu.Lock()
	s.entries[id] = Entry{Name: name, Schedule: schedule}
	s.mu.Unlock()
	slog.Debug("scheduled job", "name", name, "schedule", schedule)
	return nil
}

// Validate reports whether schedule is an expression Add accepts.
func Validate(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Entries lists registered jobs with their next run time.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.cron.Entries() {
		entry := s.entries[e.ID]
		entry.Next = e.Next
		out = append(out, entry)
	}
	return out
}

// Start starts the cron ticker.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the ticker, cancels running jobs' context and waits for them.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.stop()
	<-done.Done()
}

// slogLogger routes robfig/cron's internal logging to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
