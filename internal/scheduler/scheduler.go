// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the last known state of a registered job
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	Running   bool      `json:"running"`
}

type entry struct {
	job     Job
	id      cron.EntryID
	mu      sync.Mutex // held while the job runs
	status  JobStatus
	running bool
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*entry
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
		jobs: make(map[string]*entry),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 30 22 * * MON-FRI" - 22:30 on weekdays
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}

	e := &entry{job: job, status: JobStatus{Name: job.Name(), Schedule: schedule}}
	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(e); err != nil && err != errAlreadyRunning {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}
	e.id = id
	s.jobs[job.Name()] = e

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

var (
	// ErrUnknownJob is returned by Trigger for a name that was never registered.
	ErrUnknownJob = errors.New("job not registered")

	errAlreadyRunning = errors.New("job already running")
)

// run executes a job unless a previous run is still in progress.
func (s *Scheduler) run(e *entry) error {
	if !e.mu.TryLock() {
		s.log.Warn().Str("job", e.job.Name()).Msg("Previous run still in progress, skipping")
		return errAlreadyRunning
	}
	defer e.mu.Unlock()

	s.setRunning(e, true)
	s.log.Debug().Str("job", e.job.Name()).Msg("Running job")

	start := time.Now()
	err := e.job.Run()

	s.mu.Lock()
	e.running = false
	e.status.LastRun = start
	e.status.Runs++
	if err != nil {
		e.status.Failures++
		e.status.LastError = err.Error()
	} else {
		e.status.LastError = ""
	}
	s.mu.Unlock()

	if err == nil {
		s.log.Debug().
			Str("job", e.job.Name()).
			Dur("duration_ms", time.Since(start)).
			Msg("Job completed")
	}
	return err
}

func (s *Scheduler) setRunning(e *entry, running bool) {
	s.mu.Lock()
	e.running = running
	s.mu.Unlock()
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")

	s.mu.RLock()
	e, registered := s.jobs[job.Name()]
	s.mu.RUnlock()

	if !registered {
		return job.Run()
	}
	return s.run(e)
}

// Trigger runs a registered job by name in the background.
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	s.log.Info().Str("job", name).Msg("Manual job trigger")
	go func() {
		if err := s.run(e); err != nil && err != errAlreadyRunning {
			s.log.Error().Err(err).Str("job", name).Msg("Job failed")
		}
	}()
	return nil
}

// Jobs returns the status of every registered job, ordered by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, e := range s.jobs {
		status := e.status
		status.Running = e.running
		status.NextRun = s.cron.Entry(e.id).Next
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
