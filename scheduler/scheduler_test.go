package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func newTestScheduler() *Scheduler { return New(nopLogger{}) }

func TestRegister(t *testing.T) {
	s := newTestScheduler()
	noop := func(ctx context.Context) error { return nil }

	if err := s.Register("sweep", "0 9-23 * * *", noop); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("sweep", "* * * * *", noop); err != ErrJobExists {
		t.Errorf("duplicate name error = %v; want %v", err, ErrJobExists)
	}
	if err := s.Register("bad", "not a spec", noop); err == nil {
		t.Error("expected error for invalid spec")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s := newTestScheduler()
	if err := s.Register("sweep", "* * * * *", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	if err := s.Start("sweep"); err != nil {
		t.Fatal(err)
	}
	if err := s.Start("sweep"); err != nil {
		t.Errorf("second Start = %v; want nil", err)
	}
	st, err := s.Status("sweep")
	if err != nil {
		t.Fatal(err)
	}
	if !st.Scheduled {
		t.Error("job should be scheduled")
	}

	if err = s.Stop("sweep"); err != nil {
		t.Fatal(err)
	}
	if err = s.Stop("sweep"); err != nil {
		t.Errorf("second Stop = %v; want nil", err)
	}
	if st, _ = s.Status("sweep"); st.Scheduled {
		t.Error("job should be unscheduled")
	}

	if err = s.Start("nope"); err != ErrJobNotFound {
		t.Errorf("unknown job error = %v; want %v", err, ErrJobNotFound)
	}
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler()
	var runs int32
	if err := s.Register("sweep", "* * * * *", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow("sweep"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&runs) != 1 {
		t.Errorf("runs = %d; want 1", runs)
	}
	st, _ := s.Status("sweep")
	if st.LastRun.IsZero() {
		t.Error("LastRun not recorded")
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q; want empty", st.LastError)
	}
}

func TestRunNow_RecordsFailure(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("boom")
	if err := s.Register("sweep", "* * * * *", func(ctx context.Context) error { return boom }); err != nil {
		t.Fatal(err)
	}

	if err := s.RunNow("sweep"); errors.Cause(err) != boom {
		t.Errorf("RunNow = %v; want %v", err, boom)
	}
	st, _ := s.Status("sweep")
	if st.LastError != "boom" {
		t.Errorf("LastError = %q; want boom", st.LastError)
	}
}

func TestNoOverlappingRuns(t *testing.T) {
	s := newTestScheduler()
	block := make(chan struct{})
	started := make(chan struct{})
	var starts int32
	if err := s.Register("sweep", "* * * * *", func(ctx context.Context) error {
		// only the first run blocks; the final re-run returns right away
		if atomic.AddInt32(&starts, 1) == 1 {
			close(started)
			<-block
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.RunNow("sweep") }()
	<-started

	if err := s.RunNow("sweep"); err != ErrJobBusy {
		t.Errorf("overlapping run error = %v; want %v", err, ErrJobBusy)
	}
	st, _ := s.Status("sweep")
	if !st.Busy {
		t.Error("job should report busy")
	}

	close(block)
	if err := <-done; err != nil {
		t.Errorf("first run error = %v", err)
	}
	if err := s.RunNow("sweep"); err != nil {
		t.Errorf("run after completion = %v", err)
	}
}

func TestStatuses(t *testing.T) {
	s := newTestScheduler()
	noop := func(ctx context.Context) error { return nil }
	_ = s.Register("b-job", "* * * * *", noop)
	_ = s.Register("a-job", "* * * * *", noop)

	statuses := s.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("len = %d; want 2", len(statuses))
	}
	if statuses[0].Name != "a-job" || statuses[1].Name != "b-job" {
		t.Errorf("statuses not sorted by name: %+v", statuses)
	}
}
