package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleTime is a time of day in HH:MM form.
type ScheduleTime struct {
	Hour   int
	Minute int
}

func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// CronSpec returns the daily five-field cron expression for st.
func (st ScheduleTime) CronSpec() string {
	return fmt.Sprintf("%d %d * * *", st.Minute, st.Hour)
}

// ParseScheduleTime parses a time string in HH:MM format.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid time format %q (expected HH:MM): %w", s, err)
	}

	if hour < 0 || hour > 23 {
		return ScheduleTime{}, fmt.Errorf("invalid hour: %d (must be 0-23)", hour)
	}
	if minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid minute: %d (must be 0-59)", minute)
	}

	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

type Config struct {
	WorkerCount  int
	JobDelay     time.Duration
	QueueSize    int
	RunOnStartup bool
	// Location for the HH:MM times. Defaults to time.Local.
	Location *time.Location
}

type task struct {
	name     string
	times    []ScheduleTime
	provider JobProvider
	entries  []cron.EntryID
}

// Scheduler fires named tasks at fixed times of day. Each firing asks the
// task's provider for a batch of jobs and hands them to the worker pool.
type Scheduler struct {
	workerPool   *WorkerPool
	cron         *cron.Cron
	runOnStartup bool

	mu    sync.Mutex
	tasks map[string]*task
	order []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(cfg Config) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(log.Default())

	log.Printf("Worker pool: %d workers, %v delay between jobs", cfg.WorkerCount, cfg.JobDelay)

	return &Scheduler{
		workerPool:   NewWorkerPool(cfg.WorkerCount, cfg.JobDelay, cfg.QueueSize),
		cron:         cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger))),
		runOnStartup: cfg.RunOnStartup,
		tasks:        make(map[string]*task),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// AddDaily registers provider to run at each of the HH:MM times.
func (s *Scheduler) AddDaily(name string, times []string, provider JobProvider) error {
	if provider == nil {
		return fmt.Errorf("task %q: provider is required", name)
	}
	if len(times) == 0 {
		return fmt.Errorf("task %q: at least one schedule time is required", name)
	}

	t := &task{name: name, provider: provider}
	for _, raw := range times {
		st, err := ParseScheduleTime(raw)
		if err != nil {
			return fmt.Errorf("task %q: %w", name, err)
		}
		t.times = append(t.times, st)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}

	for _, st := range t.times {
		id, err := s.cron.AddFunc(st.CronSpec(), func() { s.run(t) })
		if err != nil {
			return fmt.Errorf("task %q: failed to schedule %s: %w", name, st, err)
		}
		t.entries = append(t.entries, id)
	}

	s.tasks[name] = t
	s.order = append(s.order, name)
	log.Printf("Scheduler: %s scheduled at %v", name, t.times)
	return nil
}

// Start launches the worker pool and the cron loop.
func (s *Scheduler) Start() {
	s.workerPool.Start()
	s.cron.Start()

	if s.runOnStartup {
		log.Println("Scheduler: Running all tasks on startup")
		s.mu.Lock()
		tasks := make([]*task, 0, len(s.order))
		for _, name := range s.order {
			tasks = append(tasks, s.tasks[name])
		}
		s.mu.Unlock()

		for _, t := range tasks {
			s.goRun(t)
		}
	}

	log.Println("Scheduler started")
}

// Trigger runs a registered task now, in the background.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}

	log.Printf("Scheduler: Manual trigger of %s", name)
	s.goRun(t)
	return nil
}

// Submit hands a single job straight to the worker pool.
func (s *Scheduler) Submit(job Job) error {
	return s.workerPool.Submit(job)
}

// NextRun returns the next firing time of the named task, or the zero time
// when the task is unknown or the cron loop has not started.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}

	var next []time.Time
	for _, id := range t.entries {
		if n := s.cron.Entry(id).Next; !n.IsZero() {
			next = append(next, n)
		}
	}
	if len(next) == 0 {
		return time.Time{}
	}
	sort.Slice(next, func(i, j int) bool { return next[i].Before(next[j]) })
	return next[0]
}

func (s *Scheduler) goRun(t *task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(t)
	}()
}

func (s *Scheduler) run(t *task) {
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := t.provider(ctx)
	if err != nil {
		log.Printf("Scheduler: %s failed to fetch jobs: %v", t.name, err)
		return
	}
	if len(jobs) == 0 {
		log.Printf("Scheduler: %s has nothing to do", t.name)
		return
	}

	log.Printf("Scheduler: %s submitting %d jobs", t.name, len(jobs))
	s.workerPool.SubmitBatch(jobs)
}

// Shutdown stops the cron loop, waits for in-flight providers, then drains
// the worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	log.Println("Scheduler: Initiating graceful shutdown...")

	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Println("Scheduler: Timeout waiting for running tasks")
	}

	s.workerPool.ShutdownWithTimeout(timeout)
	log.Println("Scheduler: Shutdown complete")
}
