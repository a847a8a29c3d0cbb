// Package cron runs the back-office background jobs on robfig/cron schedules.
// Jobs are registered explicitly at startup; there is no import-time registry.
package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"backoffice.GO/core/apperr"
)

// JobFunc does one unit of background work.
type JobFunc func(ctx context.Context) error

// Job holds schedule and run function.
type Job struct {
	Name     string
	Schedule string
	Run      JobFunc
}

type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]Job
	logger  *zap.Logger
	timeout time.Duration
}

// NewScheduler returns an empty scheduler. Each run gets timeout, zero
// meaning no deadline.
func NewScheduler(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{jobs: map[string]Job{}, logger: logger, timeout: timeout}
}

// Register adds a job. Names are case-insensitive and must be unique, and the
// schedule must parse as a standard cron spec or descriptor.
func (s *Scheduler) Register(name, schedule string, run JobFunc) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || run == nil {
		return apperr.Validation("cron job needs a name and a run function")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return apperr.Validation("cron job %s: invalid schedule %q: %v", name, schedule, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return apperr.Validation("cron job %s registered twice", name)
	}
	s.jobs[name] = Job{Name: name, Schedule: schedule, Run: run}
	return nil
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// RunNow runs one job synchronously, as `cron:start --job` does.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[strings.ToLower(name)]
	s.mu.Unlock()
	if !ok {
		return apperr.NotFound("unknown cron job %q", name)
	}
	return s.run(ctx, j)
}

func (s *Scheduler) run(ctx context.Context, j Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := j.Run(ctx)
	if err != nil {
		s.logger.Error("cron job failed", zap.String("job", j.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return fmt.Errorf("cron job %s: %w", j.Name, err)
	}
	s.logger.Info("cron job done", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
	return nil
}

// Start schedules every registered job and starts the cron runner. Overlapping
// runs of the same job are skipped and panics are recovered. Stop the returned
// runner to shut down; ctx is the parent of every run.
func (s *Scheduler) Start(ctx context.Context) (*cron.Cron, error) {
	logger := zapCronLogger{s.logger.Sugar()}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	for _, j := range s.Jobs() {
		job := j
		if _, err := c.AddFunc(job.Schedule, func() { _ = s.run(ctx, job) }); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", job.Name, err)
		}
		s.logger.Info("cron job scheduled", zap.String("job", job.Name), zap.String("schedule", job.Schedule))
	}
	c.Start()
	return c, nil
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	s *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
