package core

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// worker is a persistent background execution context. It block-pops ready
// jobs from the shared queue and runs them until the system stops.
type worker struct {
	id  int
	sys *JobSystem

	// alive is set at spawn and dropped by a deferred handler when the
	// goroutine exits; the health monitor reads it from the main thread.
	alive atomic.Bool

	// current records the job being executed, for the health monitor to
	// finalize if the goroutine dies mid-job.
	current atomic.Pointer[job]

	persistent bool
}

func newWorker(id int, sys *JobSystem) *worker {
	return &worker{id: id, sys: sys, persistent: true}
}

// run is the worker main loop. It never lets a job body fault escape: panics
// are contained by execute. If the goroutine still terminates (e.g. a body
// calls runtime.Goexit), the deferred alive drop lets the health monitor
// detect the death and respawn.
func (w *worker) run() {
	defer func() {
		w.alive.Store(false)
		w.sys.workerWG.Done()
	}()

	for {
		j, ok := w.sys.backgroundQueue.pop(w.sys.stopCh)
		if !ok {
			return
		}

		next := w.execute(j)

		// Soft group affinity: when finishing a job makes its group successor
		// ready, keep it on this worker for cache/context locality instead of
		// routing it through the shared queue.
		for next != nil {
			next = w.execute(next)
		}
	}
}

// execute runs one job to a terminal state and returns the inline
// continuation, if any.
func (w *worker) execute(j *job) *job {
	return w.sys.runJob(j, w)
}

// =============================================================================
// Job execution (shared by background workers and the main-thread lane)
// =============================================================================

// runJob transitions the job to Running, invokes the body with panic
// containment, and finalizes it. w is nil on the main-thread lane. The
// returned job, if any, is a group successor to execute inline on the same
// worker.
func (s *JobSystem) runJob(j *job, w *worker) *job {
	if !j.transition(JobStatePending, JobStateRunning) {
		// Canceled between becoming ready and being popped.
		return nil
	}

	workerID := -1
	if w != nil {
		workerID = w.id
		w.current.Store(j)
	}

	// Deliberately no deferred cleanup here: if the body kills the goroutine
	// (runtime.Goexit), the job must stay Running with w.current set so the
	// health monitor can finalize it. The finalizers below decrement the
	// active count and the normal paths clear w.current.
	s.activeJobs.Add(1)

	jc := &JobContext{ctx: s.runCtx, job: j, workerID: workerID}
	started := time.Now()

	var (
		result   any
		bodyErr  error
		panicked any
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = r
				s.cfg.PanicHandler.HandlePanic(j.name, workerID, r, debug.Stack())
				s.cfg.Metrics.RecordJobPanic(j.name)
			}
		}()
		result, bodyErr = j.body(jc)
	}()

	s.cfg.Metrics.RecordJobDuration(j.priority, time.Since(started))

	var inline *job
	switch {
	case panicked != nil:
		// An execution fault is equivalent to cancellation for propagation:
		// the job finalizes Canceled with the fault attached and dependents
		// are cascade-canceled.
		s.cancelJob(j, &FaultError{Job: j.name, PanicValue: panicked}, "fault", true)
	case bodyErr != nil:
		s.cancelJob(j, &FaultError{Job: j.name, Cause: bodyErr}, "fault", true)
	case j.cancelRequested.Load():
		// Cancel arrived while the body ran; the completion path re-checks
		// the mark and discards the result.
		s.cancelJob(j, ErrCanceled, "canceled", true)
	default:
		inline = s.finalizeSucceeded(j, result, w != nil)
	}

	s.recordExecution(j, workerID, started)
	if w != nil {
		w.current.Store(nil)
	}
	return inline
}

func (s *JobSystem) recordExecution(j *job, workerID int, started time.Time) {
	j.mu.Lock()
	fault := j.fault
	j.mu.Unlock()

	now := time.Now()
	s.history.Add(ExecutionRecord{
		Handle:     j.handle,
		Name:       j.name,
		Priority:   j.priority,
		WorkerID:   workerID,
		State:      j.currentState(),
		Fault:      fault,
		StartedAt:  started,
		FinishedAt: now,
		Duration:   now.Sub(started),
	})
}
