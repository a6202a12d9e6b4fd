// Package scheduler runs named background jobs on cron schedules. Jobs are
// registered up front and can be paused, resumed and triggered by name at
// runtime. A job never overlaps itself: a tick that lands while the previous
// run is still going is skipped.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("a job with this name already exists")
	ErrJobBusy     = errors.New("job is already running")
)

// Func is a job body. The context is canceled on scheduler shutdown.
type Func func(ctx context.Context) error

type (
	Scheduler struct {
		mu     sync.Mutex
		cron   *cron.Cron
		jobs   map[string]*job
		logger core.Logger

		ctx    context.Context
		cancel context.CancelFunc
	}

	job struct {
		name string
		spec string
		fn   Func

		entryID   cron.EntryID
		scheduled bool
		busy      int32 // atomic; 1 while a run is in progress

		lastMu    sync.Mutex
		lastRun   time.Time
		lastError string
	}

	// Status is a point-in-time snapshot of a job.
	Status struct {
		Name      string    `json:"name"`
		Spec      string    `json:"spec"`
		Scheduled bool      `json:"scheduled"`
		Busy      bool      `json:"busy"`
		LastRun   time.Time `json:"last_run"`
		LastError string    `json:"last_error,omitempty"`
		NextRun   time.Time `json:"next_run"`
	}
)

// New creates a Scheduler ticking in the attendance timezone, so specs like
// "0 9-23 * * *" mean local opening hours.
func New(logger core.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(core.Conf.Attendance.Location())),
		jobs:   make(map[string]*job),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a named job. The job is not scheduled until Start is called.
func (s *Scheduler) Register(name, spec string, fn Func) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.Wrapf(err, "parsing spec for job %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return ErrJobExists
	}
	s.jobs[name] = &job{name: name, spec: spec, fn: fn}
	return nil
}

// Start schedules a registered job. Starting a scheduled job is a no-op.
func (s *Scheduler) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	if j.scheduled {
		return nil
	}
	entryID, err := s.cron.AddFunc(j.spec, func() {
		if err := s.runJob(j); err == ErrJobBusy {
			s.logger.Warn("job " + j.name + ": previous run still in progress, skipping tick")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "scheduling job %q", name)
	}
	j.entryID = entryID
	j.scheduled = true
	return nil
}

// Stop unschedules a job. An in-progress run is left to finish.
// Stopping an unscheduled job is a no-op.
func (s *Scheduler) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	if !j.scheduled {
		return nil
	}
	s.cron.Remove(j.entryID)
	j.scheduled = false
	return nil
}

// StartAll schedules every registered job and starts the ticker.
func (s *Scheduler) StartAll() error {
	s.mu.Lock()
	names := s.names()
	s.mu.Unlock()

	for _, name := range names {
		if err := s.Start(name); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// StopAll unschedules every job.
func (s *Scheduler) StopAll() error {
	s.mu.Lock()
	names := s.names()
	s.mu.Unlock()

	for _, name := range names {
		if err := s.Stop(name); err != nil {
			return err
		}
	}
	return nil
}

// RunNow triggers a job immediately, outside its schedule.
// ErrJobBusy if a run is already in progress.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.runJob(j)
}

// Status reports the state of one job.
func (s *Scheduler) Status(name string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return Status{}, ErrJobNotFound
	}
	return s.status(j), nil
}

// Statuses reports the state of all jobs, sorted by name.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]Status, 0, len(s.jobs))
	for _, name := range s.names() {
		statuses = append(statuses, s.status(s.jobs[name]))
	}
	return statuses
}

// Shutdown stops the ticker and waits for in-progress runs to finish,
// or for ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancel()
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runJob(j *job) error {
	if !atomic.CompareAndSwapInt32(&j.busy, 0, 1) {
		return ErrJobBusy
	}
	defer atomic.StoreInt32(&j.busy, 0)

	err := j.fn(s.ctx)

	j.lastMu.Lock()
	j.lastRun = time.Now().UTC()
	if err != nil {
		j.lastError = err.Error()
		s.logger.Error("job "+j.name+" failed", err)
	} else {
		j.lastError = ""
	}
	j.lastMu.Unlock()
	return err
}

// names returns registered job names sorted. Caller must hold s.mu.
func (s *Scheduler) names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// status snapshots a job. Caller must hold s.mu.
func (s *Scheduler) status(j *job) Status {
	j.lastMu.Lock()
	defer j.lastMu.Unlock()

	st := Status{
		Name:      j.name,
		Spec:      j.spec,
		Scheduled: j.scheduled,
		Busy:      atomic.LoadInt32(&j.busy) == 1,
		LastRun:   j.lastRun,
		LastError: j.lastError,
	}
	if j.scheduled {
		st.NextRun = s.cron.Entry(j.entryID).Next
	}
	return st
}
