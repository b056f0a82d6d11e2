package cron

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	f.acquires++
	return f.acquired, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	return nil
}

type fakeJob struct {
	name string
	runs int
	err  error
}

func (f *fakeJob) Name() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) error {
	f.runs++
	return f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRunCycleExecutesJobsInOrder(t *testing.T) {
	lock := &fakeLock{acquired: true}
	first := &fakeJob{name: "first"}
	second := &fakeJob{name: "second", err: fmt.Errorf("boom")}
	third := &fakeJob{name: "third"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second, third),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if first.runs != 1 || second.runs != 1 || third.runs != 1 {
		t.Fatalf("every job must run once even after a failure: %d %d %d", first.runs, second.runs, third.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("lock must be released, got %d releases", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	lock := &fakeLock{acquired: false}
	job := &fakeJob{name: "noop"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("jobs must not run without the lock")
	}
	if lock.releases != 0 {
		t.Fatalf("unheld lock must not be released")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: testLogger()}); err == nil {
		t.Fatalf("expected error without lock")
	}
}
