package core

import (
	"errors"
	"testing"
	"time"
)

// TestSubmitDelayed_RunsAfterDelay tests timer-gated readiness
// Main test items:
// 1. The job does not start before the delay elapsed
// 2. The job runs and completes normally afterwards
func TestSubmitDelayed_RunsAfterDelay(t *testing.T) {
	s := newTestSystem(t, 2)

	submitted := time.Now()
	const delay = 50 * time.Millisecond

	h, err := s.SubmitDelayed(func(jc *JobContext) (any, error) {
		return time.Since(submitted), nil
	}, delay, SubmitOptions{Name: "delayed"})
	if err != nil {
		t.Fatalf("SubmitDelayed failed: %v", err)
	}

	if st, _ := s.State(h); st != JobStatePending {
		t.Errorf("Expected Pending right after submission, got %s", st)
	}

	result, err := s.WaitForResult(h)
	if err != nil {
		t.Fatalf("WaitForResult failed: %v", err)
	}
	if elapsed := result.(time.Duration); elapsed < delay {
		t.Errorf("Job started %v after submission, before the %v delay", elapsed, delay)
	}
	s.Release(h)
}

// TestSubmitDelayed_RejectsDependencies tests the delayed/dependency split
// Main test items:
// 1. A delayed submission with dependencies is rejected
func TestSubmitDelayed_RejectsDependencies(t *testing.T) {
	s := newTestSystem(t, 1)

	dep, _ := s.Submit(func(jc *JobContext) (any, error) { return nil, nil },
		nil, JobPriorityNormal, 0)

	_, err := s.SubmitDelayed(func(jc *JobContext) (any, error) { return nil, nil },
		10*time.Millisecond, SubmitOptions{Dependencies: []JobHandle{dep}})
	if !errors.Is(err, ErrDelayedDependencies) {
		t.Errorf("Expected ErrDelayedDependencies, got %v", err)
	}
	_ = s.Wait(dep)
	s.Release(dep)
}

// TestSubmitDelayed_ZeroDelayIsImmediate tests the degenerate case
// Main test items:
// 1. A non-positive delay submits immediately
func TestSubmitDelayed_ZeroDelayIsImmediate(t *testing.T) {
	s := newTestSystem(t, 1)

	h, err := s.SubmitDelayed(func(jc *JobContext) (any, error) { return "now", nil },
		0, SubmitOptions{})
	if err != nil {
		t.Fatalf("SubmitDelayed failed: %v", err)
	}
	if result, err := s.WaitForResult(h); err != nil || result != "now" {
		t.Errorf("Expected 'now', got %v (%v)", result, err)
	}
	s.Release(h)
}

// TestSubmitDelayed_CanceledBeforeTimer tests cancellation racing the timer
// Main test items:
// 1. Canceling before the timer fires prevents execution
func TestSubmitDelayed_CanceledBeforeTimer(t *testing.T) {
	s := newTestSystem(t, 2)

	h, err := s.SubmitDelayed(func(jc *JobContext) (any, error) {
		t.Error("Canceled delayed job must never run")
		return nil, nil
	}, 100*time.Millisecond, SubmitOptions{})
	if err != nil {
		t.Fatalf("SubmitDelayed failed: %v", err)
	}

	if err := s.Cancel(h); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if st, _ := s.State(h); st != JobStateCanceled {
		t.Errorf("Expected Canceled, got %s", st)
	}

	// Let the timer fire into the canceled job.
	time.Sleep(150 * time.Millisecond)
	s.Release(h)
}
