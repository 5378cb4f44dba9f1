// Package jobs runs the periodic maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pawmate/pawmate/internal/app/metrics"
	"github.com/pawmate/pawmate/pkg/logger"
)

// Runner executes one job run and reports how many items it touched.
type Runner interface {
	Run(ctx context.Context) (int, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context) (int, error)

func (f RunnerFunc) Run(ctx context.Context) (int, error) {
	if f == nil {
		return 0, nil
	}
	return f(ctx)
}

// Status describes a registered job.
type Status struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastCount int       `json:"last_count"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
}

type entry struct {
	id       cron.EntryID
	schedule string
	runner   Runner
	status   Status
}

// Scheduler owns a cron instance and the jobs registered on it. Overlapping
// runs of the same job are skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
}

// NewScheduler builds a scheduler evaluating schedules in UTC.
func NewScheduler(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("jobs")
	}
	ctx, cancel := context.WithCancel(context.Background())
	adapter := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
}

// Add registers runner under name with a standard cron spec or descriptor
// such as "@hourly".
func (s *Scheduler) Add(name, spec string, runner Runner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	e := &entry{schedule: spec, runner: runner, status: Status{Name: name, Schedule: spec}}
	id, err := s.cron.AddFunc(spec, func() { s.execute(s.ctx, name, e) })
	if err != nil {
		return fmt.Errorf("schedule %q for job %s: %w", spec, name, err)
	}
	e.id = id
	s.entries[name] = e
	return nil
}

// RunNow executes a registered job immediately and returns its result.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("job %q not registered", name)
	}
	return s.execute(ctx, name, e)
}

func (s *Scheduler) execute(ctx context.Context, name string, e *entry) (int, error) {
	start := time.Now()
	count, err := e.runner.Run(ctx)
	duration := time.Since(start)
	metrics.RecordJobRun(name, duration, err == nil)

	s.mu.Lock()
	e.status.LastRun = start.UTC()
	e.status.LastCount = count
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
	}
	s.mu.Unlock()

	log := s.log.WithField("job", name).WithField("duration_ms", duration.Milliseconds())
	if err != nil {
		log.WithError(err).Warn("job run failed")
		return count, err
	}
	log.WithField("count", count).Info("job run finished")
	return count, nil
}

// Jobs reports every registered job, sorted by name.
func (s *Scheduler) Jobs() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.entries))
	for _, e := range s.entries {
		st := e.status
		st.NextRun = s.cron.Entry(e.id).Next
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) Name() string { return "jobs" }

func (s *Scheduler) Start(context.Context) error {
	s.cron.Start()
	s.log.WithField("jobs", len(s.entries)).Info("job scheduler started")
	return nil
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own logging into the service logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
