// internal/scheduler/scheduler.go
// Runs the periodic jobs of the match core: window expiry, expiry reminders
// and ghosting detection.

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	ErrJobExists      = errors.New("job already registered")
	ErrUnknownJob     = errors.New("unknown job")
	ErrInvalidJob     = errors.New("job needs a name, a positive interval and a task")
	ErrAlreadyRunning = errors.New("scheduler already started")
)

type Task func(ctx context.Context) error

type Job struct {
	Name     string
	Interval time.Duration
	Task     Task
	// RunOnStart runs the task immediately instead of waiting one interval
	RunOnStart bool
}

// Scheduler runs each job in its own goroutine on its own ticker. A job runs
// synchronously in its loop, so it never overlaps itself; ticks that fire
// during a run are dropped.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []Job
	byName  map[string]Job
	timeout time.Duration
	started bool
	wg      sync.WaitGroup
}

// New creates a scheduler. timeout bounds every run; zero means no bound.
func New(timeout time.Duration) *Scheduler {
	return &Scheduler{
		byName:  make(map[string]Job),
		timeout: timeout,
	}
}

func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Interval <= 0 || job.Task == nil {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyRunning
	}
	if _, ok := s.byName[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, job.Name)
	}
	s.jobs = append(s.jobs, job)
	s.byName[job.Name] = job
	return nil
}

// Start launches every job. They stop when ctx is cancelled; use Wait to
// block until in-flight runs have returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyRunning
	}
	s.started = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	log.Printf("Scheduler started with %d jobs", len(s.jobs))
	return nil
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunOnce runs a registered job immediately in the caller's goroutine
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.byName[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name
	}
	return names
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	if job.RunOnStart {
		s.runLogged(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runLogged(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if err := s.run(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Scheduled job %s failed: %v", job.Name, err)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) (err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		RecordJobRun(job.Name, time.Since(start), err)
	}()

	return job.Task(ctx)
}
