// Package scheduler runs site maintenance commands on cron expressions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

var (
	ErrJobNotFound      = errors.New("scheduler: job not found")
	ErrExpressionEmpty  = errors.New("scheduler: cron expression is required")
	ErrUnsupportedJob   = errors.New("scheduler: unsupported job handler")
	ErrDuplicateJobName = errors.New("scheduler: job already registered")
)

// JobFunc is one scheduled run.
type JobFunc func(ctx context.Context) error

// Entry describes a registered job.
type Entry struct {
	Name       string
	Expression string
	Next       time.Time
	Prev       time.Time
}

type job struct {
	name       string
	expression string
	id         cron.EntryID
	run        JobFunc
}

// Scheduler wraps robfig/cron. Runs recover from panics, carry a run id in
// their log fields, and are skipped while the previous run of the same job is
// still going.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]*job
	logger  interfaces.Logger
	timeout time.Duration
	loc     *time.Location
	started bool
}

type Option func(*Scheduler)

func WithLogger(logger interfaces.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithJobTimeout bounds the context passed to each run. Zero disables it.
func WithJobTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = max(timeout, 0)
	}
}

// WithLocation evaluates expressions in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:   make(map[string]*job),
		logger: logging.NoOp(),
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = newCron(s.logger, s.loc)
	return s
}

func newCron(logger interfaces.Logger, loc *time.Location) *cron.Cron {
	adapter := cronLogger{logger: logger}
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(adapter),
		cron.WithChain(cron.SkipIfStillRunning(adapter)),
	)
}

// Add registers fn under name. An empty expression is rejected so callers
// can treat a blank config value as "disabled" before calling Add.
func (s *Scheduler) Add(name, expression string, fn JobFunc) error {
	name = strings.TrimSpace(name)
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return fmt.Errorf("%w: %s", ErrExpressionEmpty, name)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedJob, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJobName, name)
	}
	entry := &job{name: name, expression: expression, run: fn}
	id, err := s.cron.AddFunc(expression, func() { s.execute(entry) })
	if err != nil {
		return fmt.Errorf("scheduler: job %s: %w", name, err)
	}
	entry.id = id
	s.jobs[name] = entry
	s.logger.Info("scheduler.job.registered", "job", name, "expression", expression)
	return nil
}

// Registrar adapts Add to the go-command cron registration signature used by
// the command packages. handler may be a func() error, a JobFunc or a
// func(context.Context) error.
func (s *Scheduler) Registrar(name string) func(command.HandlerConfig, any) error {
	return func(cfg command.HandlerConfig, handler any) error {
		var fn JobFunc
		switch h := handler.(type) {
		case func() error:
			fn = func(context.Context) error { return h() }
		case JobFunc:
			fn = h
		case func(context.Context) error:
			fn = h
		default:
			return fmt.Errorf("%w: %s (%T)", ErrUnsupportedJob, name, handler)
		}
		return s.Add(name, cfg.Expression, fn)
	}
}

// Run executes a registered job immediately in the caller's goroutine.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	entry, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.runJob(ctx, entry)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler.started", "jobs", len(s.jobs))
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends
// first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler.stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries lists registered jobs ordered by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for _, entry := range s.jobs {
		scheduled := s.cron.Entry(entry.id)
		out = append(out, Entry{
			Name:       entry.name,
			Expression: entry.expression,
			Next:       scheduled.Next,
			Prev:       scheduled.Prev,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// execute is the cron callback; runJob already logs failures.
func (s *Scheduler) execute(entry *job) {
	_ = s.runJob(context.Background(), entry)
}

func (s *Scheduler) runJob(ctx context.Context, entry *job) (err error) {
	logger := logging.WithFields(s.logger, map[string]any{
		"job":    entry.name,
		"run_id": uuid.NewString(),
	})
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("scheduler: job %s panicked: %v", entry.name, recovered)
			logger.Error("scheduler.job.panic", "panic", recovered, "stack", string(debug.Stack()))
		}
	}()

	logger.Debug("scheduler.job.start")
	if err = entry.run(ctx); err != nil {
		logger.Error("scheduler.job.failed", "error", err, "duration_ms", time.Since(started).Milliseconds())
		return err
	}
	logger.Info("scheduler.job.completed", "duration_ms", time.Since(started).Milliseconds())
	return nil
}

// cronLogger routes robfig/cron's own logging through interfaces.Logger.
type cronLogger struct {
	logger interfaces.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("scheduler.cron."+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("scheduler.cron."+msg, append([]any{"error", err}, keysAndValues...)...)
}
