package core

import (
	"sync"
	"testing"
	"time"
)

// TestSubmitGroup_SequentialOrder tests the forced linear execution order
// Main test items:
// 1. Members execute strictly in submission order
// 2. The returned handle is the last member's
// 3. Waiting on the returned handle waits for the whole chain
func TestSubmitGroup_SequentialOrder(t *testing.T) {
	s := newTestSystem(t, 4)

	var mu sync.Mutex
	var order []int
	member := func(i int) JobFunc {
		return func(jc *JobContext) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}
	}

	last, err := s.SubmitGroup([]JobFunc{member(0), member(1), member(2), member(3)},
		JobPriorityNormal, 0)
	if err != nil {
		t.Fatalf("SubmitGroup failed: %v", err)
	}

	result, err := s.WaitForResult(last)
	if err != nil {
		t.Fatalf("WaitForResult failed: %v", err)
	}
	if result != 3 {
		t.Errorf("Expected last member's result 3, got %v", result)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 4 {
		t.Fatalf("Expected 4 executions, got %v", order)
	}
	for i, got := range order {
		if got != i {
			t.Errorf("Step %d: expected member %d, got %d", i, i, got)
		}
	}
	s.Release(last)
}

// TestSubmitGroup_WorkerAffinity tests the soft same-worker preference
// Main test items:
// 1. On an otherwise idle pool, the whole chain runs on one worker
func TestSubmitGroup_WorkerAffinity(t *testing.T) {
	s := newTestSystem(t, 4)

	var mu sync.Mutex
	var workers []int
	member := func(jc *JobContext) (any, error) {
		mu.Lock()
		workers = append(workers, jc.WorkerID())
		mu.Unlock()
		return nil, nil
	}

	last, err := s.SubmitGroup([]JobFunc{member, member, member}, JobPriorityNormal, 0)
	if err != nil {
		t.Fatalf("SubmitGroup failed: %v", err)
	}
	_ = s.Wait(last)

	mu.Lock()
	defer mu.Unlock()
	if len(workers) != 3 {
		t.Fatalf("Expected 3 executions, got %d", len(workers))
	}
	for _, id := range workers[1:] {
		if id != workers[0] {
			t.Errorf("Expected whole chain on worker %d, got %v", workers[0], workers)
		}
	}
	s.Release(last)
}

// TestSubmitGroup_Validation tests group submission validation
// Main test items:
// 1. An empty group is rejected
// 2. A nil member body is rejected
func TestSubmitGroup_Validation(t *testing.T) {
	s := newTestSystem(t, 1)

	if _, err := s.SubmitGroup(nil, JobPriorityNormal, 0); err == nil {
		t.Error("Expected error for empty group")
	}
	ok := func(jc *JobContext) (any, error) { return nil, nil }
	if _, err := s.SubmitGroup([]JobFunc{ok, nil}, JobPriorityNormal, 0); err == nil {
		t.Error("Expected error for nil member body")
	}
}

// TestSubmitGroup_ExternalDependenciesGateHead tests group gating
// Main test items:
// 1. No member starts before the group's external dependency finished
func TestSubmitGroup_ExternalDependenciesGateHead(t *testing.T) {
	s := newTestSystem(t, 4)

	gateDone := make(chan struct{})
	gate, _ := s.Submit(func(jc *JobContext) (any, error) {
		<-gateDone
		return nil, nil
	}, nil, JobPriorityNormal, 0)

	var started sync.WaitGroup
	started.Add(1)
	var sawGate bool
	last, err := s.SubmitGroupWithOptions([]JobFunc{
		func(jc *JobContext) (any, error) {
			defer started.Done()
			if st, _ := s.State(gate); st == JobStateSucceeded {
				sawGate = true
			}
			return nil, nil
		},
	}, SubmitOptions{Dependencies: []JobHandle{gate}})
	if err != nil {
		t.Fatalf("SubmitGroupWithOptions failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	close(gateDone)
	started.Wait()

	if !sawGate {
		t.Error("Group head started before its external dependency finished")
	}
	_ = s.Wait(last)
	s.Release(gate)
	s.Release(last)
}

// TestSubmitGroup_CancelHeadCancelsChain tests group cascade
// Main test items:
// 1. Canceling the pending head cancels every later member
func TestSubmitGroup_CancelHeadCancelsChain(t *testing.T) {
	// No workers so the members stay Pending.
	s := newTestSystem(t, 0)

	mustNotRun := func(jc *JobContext) (any, error) {
		t.Error("Canceled group member must never run")
		return nil, nil
	}

	// Gate the head behind a never-finishing dependency, then cancel that.
	gate, _ := s.Submit(func(jc *JobContext) (any, error) { return nil, nil },
		nil, JobPriorityNormal, 0)
	last, err := s.SubmitGroupWithOptions([]JobFunc{mustNotRun, mustNotRun},
		SubmitOptions{Dependencies: []JobHandle{gate}})
	if err != nil {
		t.Fatalf("SubmitGroupWithOptions failed: %v", err)
	}

	if err := s.Cancel(gate); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if st, _ := s.State(last); st != JobStateCanceled {
		t.Errorf("Expected Canceled chain tail, got %s", st)
	}
	s.Release(gate)
	s.Release(last)
}

// TestSubmitGroup_NamedMembers tests member naming
// Main test items:
// 1. A named group labels members with their index
func TestSubmitGroup_NamedMembers(t *testing.T) {
	s := newTestSystem(t, 1)

	last, err := s.SubmitGroupWithOptions([]JobFunc{
		func(jc *JobContext) (any, error) { return nil, nil },
		func(jc *JobContext) (any, error) { return nil, nil },
	}, SubmitOptions{Name: "pipeline"})
	if err != nil {
		t.Fatalf("SubmitGroupWithOptions failed: %v", err)
	}
	_ = s.Wait(last)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		records := s.RecentExecutions(10)
		if len(records) >= 2 {
			seen := map[string]bool{}
			for _, r := range records {
				seen[r.Name] = true
			}
			if seen["pipeline[0]"] && seen["pipeline[1]"] {
				s.Release(last)
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Error("Indexed member names never appeared in the execution history")
}
