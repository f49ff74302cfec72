// Package scheduler runs the engine's recurring task batches. Each cadence
// owns a cron entry and a mutex; manual triggers go through the same batch
// code as the timers.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sykell/seo-engine/internal/config"
	"github.com/sykell/seo-engine/internal/crawler"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/engine"
	"github.com/sykell/seo-engine/internal/service"
)

type Cadence string

const (
	Hourly  Cadence = "hourly"
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

var cadences = []Cadence{Hourly, Daily, Weekly, Monthly}

// ParseCadence accepts hourly, daily, weekly or monthly
func ParseCadence(s string) (Cadence, error) {
	for _, c := range cadences {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}

// Deps are the stores and services the task bodies use
type Deps struct {
	Engine   *engine.Engine
	Content  *service.ContentRepository
	Scores   *service.ScoreStore
	Index    *service.IndexTracker
	Keywords *service.KeywordTracker
	Log      *service.ActionLog
	Links    *crawler.Checker
	Now      func() time.Time
}

// Scheduler owns the cron timers. It is safe to trigger different cadences
// concurrently; runs of one cadence are serialised.
type Scheduler struct {
	config config.Scheduler
	deps   Deps
	now    func() time.Time

	cron  *cron.Cron
	locks map[Cadence]*sync.Mutex

	mu        sync.Mutex
	isRunning bool
}

// New creates a scheduler. It does not start the timers.
func New(cfg config.Scheduler, deps Deps) *Scheduler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.Links == nil {
		deps.Links = crawler.NewChecker(&crawler.Config{
			Workers:       crawler.DefaultConfig().Workers,
			Timeout:       cfg.LinkCheckTimeout,
			ProbeExternal: cfg.ProbeExternal,
		})
	}

	locks := make(map[Cadence]*sync.Mutex, len(cadences))
	for _, c := range cadences {
		locks[c] = &sync.Mutex{}
	}

	logger := cronLogger{}
	return &Scheduler{
		config: cfg,
		deps:   deps,
		now:    now,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		locks: locks,
	}
}

// Start registers the four cadences and starts the timers
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	specs := map[Cadence]string{
		Hourly:  s.config.HourlySpec,
		Daily:   s.config.DailySpec,
		Weekly:  s.config.WeeklySpec,
		Monthly: s.config.MonthlySpec,
	}
	for _, c := range cadences {
		c := c
		if _, err := s.cron.AddFunc(specs[c], func() { s.run(context.Background(), c, "timer") }); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", c, specs[c], err)
		}
	}

	s.cron.Start()
	s.isRunning = true
	slog.Info("Scheduler started", "hourly", specs[Hourly], "daily", specs[Daily],
		"weekly", specs[Weekly], "monthly", specs[Monthly])
	return nil
}

// Stop halts the timers and waits for running batches to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	slog.Info("Scheduler stopped")
}

// Trigger runs a cadence's batch now and returns one result per task
func (s *Scheduler) Trigger(ctx context.Context, c Cadence) []TaskResult {
	return s.run(ctx, c, "manual")
}

func (s *Scheduler) TriggerHourly(ctx context.Context) []TaskResult  { return s.Trigger(ctx, Hourly) }
func (s *Scheduler) TriggerDaily(ctx context.Context) []TaskResult   { return s.Trigger(ctx, Daily) }
func (s *Scheduler) TriggerWeekly(ctx context.Context) []TaskResult  { return s.Trigger(ctx, Weekly) }
func (s *Scheduler) TriggerMonthly(ctx context.Context) []TaskResult { return s.Trigger(ctx, Monthly) }

func (s *Scheduler) run(ctx context.Context, c Cadence, trigger string) []TaskResult {
	lock := s.locks[c]
	lock.Lock()
	defer lock.Unlock()

	slog.Info("Running task batch", "cadence", c, "trigger", trigger)
	return RunBatch(ctx, s.deps.Log, s.now, Batch{Cadence: c, Trigger: trigger, Tasks: s.Tasks(c)})
}

// Task is one named step of a batch. Details end up in the task result.
type Task struct {
	Name string
	Run  func(ctx context.Context) (map[string]any, error)
}

// TaskResult is the recorded outcome of one task
type TaskResult struct {
	Task      string         `json:"task"`
	Success   bool           `json:"success"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Duration  time.Duration  `json:"duration"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type Batch struct {
	Cadence Cadence
	Trigger string
	Tasks   []Task
}

// RunBatch runs every task in order. A failing or panicking task is recorded
// and the batch moves on. One scheduled-task entry summarises the batch.
func RunBatch(ctx context.Context, actionLog *service.ActionLog, now func() time.Time, b Batch) []TaskResult {
	start := now()
	results := make([]TaskResult, 0, len(b.Tasks))
	failed := 0

	for _, task := range b.Tasks {
		res := runTask(ctx, now, task)
		if !res.Success {
			failed++
			slog.Error("Scheduled task failed", "cadence", b.Cadence, "task", res.Task, "error", res.Error)
		}
		results = append(results, res)
	}

	status := db.LogSuccess
	switch {
	case len(results) > 0 && failed == len(results):
		status = db.LogFailed
	case failed > 0:
		status = db.LogWarning
	}

	tasks := make([]map[string]any, 0, len(results))
	for _, r := range results {
		t := map[string]any{"task": r.Task, "success": r.Success, "duration_ms": r.Duration.Milliseconds()}
		if r.Error != "" {
			t["error"] = r.Error
		}
		tasks = append(tasks, t)
	}

	actionLog.Append(ctx, db.LogEntry{
		Action:     db.ActionScheduledTask,
		EntityType: "cadence",
		EntityID:   string(b.Cadence),
		Status:     status,
		Message:    fmt.Sprintf("%s batch: %d of %d tasks succeeded", b.Cadence, len(results)-failed, len(results)),
		Details:    map[string]any{"trigger": b.Trigger, "tasks": tasks},
		DurationMs: now().Sub(start).Milliseconds(),
		Scheduled:  true,
	})

	return results
}

func runTask(ctx context.Context, now func() time.Time, task Task) (res TaskResult) {
	res = TaskResult{Task: task.Name, StartTime: now().UTC()}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Scheduled task panicked", "task", task.Name, "panic", r, "stack", string(debug.Stack()))
			res.Success = false
			res.Details = nil
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.EndTime = now().UTC()
		res.Duration = res.EndTime.Sub(res.StartTime)
	}()

	details, err := task.Run(ctx)
	res.Details = details
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

// cronLogger routes robfig/cron's logging through slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
