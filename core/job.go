package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// JobFunc is the unit of schedulable work. The returned value is stored in
// the job's result slot on success; a non-nil error finalizes the job as
// Canceled with the error attached as its fault reason.
type JobFunc func(jc *JobContext) (any, error)

// =============================================================================
// JobState: Monotonic job state machine
// =============================================================================

type JobState int32

const (
	// JobStatePending: registered, waiting on dependencies or a worker.
	JobStatePending JobState = iota

	// JobStateRunning: a worker is executing the job body.
	JobStateRunning

	// JobStateSucceeded: the body returned normally; the result slot is readable.
	JobStateSucceeded

	// JobStateCanceled: canceled, cascade-canceled, faulted, or lost with a
	// dead worker. The fault reason (if any) is attached to the job.
	JobStateCanceled
)

func (s JobState) String() string {
	switch s {
	case JobStatePending:
		return "Pending"
	case JobStateRunning:
		return "Running"
	case JobStateSucceeded:
		return "Succeeded"
	case JobStateCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("JobState(%d)", int32(s))
	}
}

// Terminal reports whether the state is final. States never regress.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateCanceled
}

// =============================================================================
// JobPriority / JobFlags
// =============================================================================

type JobPriority int

const (
	// JobPriorityNormal: default priority.
	JobPriorityNormal JobPriority = iota

	// JobPriorityHigh: dispatched before all Normal jobs; FIFO within a tier.
	JobPriorityHigh
)

func (p JobPriority) String() string {
	if p == JobPriorityHigh {
		return "High"
	}
	return "Normal"
}

type JobFlags uint32

const (
	// JobFlagRunOnMainThread routes the job to the main-thread lane, drained
	// only inside Update().
	JobFlagRunOnMainThread JobFlags = 1 << iota

	// JobFlagAutoRelease transfers ownership to the scheduler: the job's slot
	// is reclaimed after it reaches a terminal state and its completion
	// callback (if any) has fired.
	JobFlagAutoRelease
)

func (f JobFlags) Has(flag JobFlags) bool { return f&flag != 0 }

// =============================================================================
// JobHandle: generation-checked reference into the job arena
// =============================================================================

// JobHandle identifies a job. Handles are small values safe to copy and
// compare; a handle whose slot has been released is stale and rejected by
// every JobSystem operation.
type JobHandle struct {
	index      uint32
	generation uint32
}

// IsValid reports whether the handle was produced by a Submit call. It does
// not check for staleness; use JobSystem.State for that.
func (h JobHandle) IsValid() bool { return h.generation != 0 }

func (h JobHandle) String() string {
	return fmt.Sprintf("job(%d@%d)", h.index, h.generation)
}

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrSelfDependency: a job listed itself as a dependency.
	ErrSelfDependency = errors.New("job cannot depend on itself")

	// ErrCycleDetected: the requested edge would close a dependency cycle.
	ErrCycleDetected = errors.New("dependency cycle detected")

	// ErrStaleHandle: the handle's slot has been released or never existed.
	ErrStaleHandle = errors.New("stale job handle")

	// ErrEdgeFrozen: the job is already ready or running; its dependency set
	// is fixed.
	ErrEdgeFrozen = errors.New("dependency set is frozen")

	// ErrNotRunning: the JobSystem has not been started or is shutting down.
	ErrNotRunning = errors.New("job system is not running")

	// ErrAlreadyRunning: Startup called on a running system.
	ErrAlreadyRunning = errors.New("job system already running")

	// ErrShutdownTimeout: running jobs or workers outlived the shutdown wait.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrCanceled: generic cancellation reason attached by Cancel and the
	// shutdown sweep.
	ErrCanceled = errors.New("job canceled")

	// ErrDelayedDependencies: SubmitDelayed does not accept dependencies.
	ErrDelayedDependencies = errors.New("delayed jobs cannot have dependencies")

	// ErrNoResult: WaitForResult on a job that did not succeed.
	ErrNoResult = errors.New("job produced no result")
)

var errNilBody = errors.New("nil job body")

// FaultError is the reason attached to a job finalized Canceled because its
// body failed. Exactly one of Cause or PanicValue is set.
type FaultError struct {
	Job        string
	Cause      error
	PanicValue any
}

func (e *FaultError) Error() string {
	if e.PanicValue != nil {
		return fmt.Sprintf("job %q panicked: %v", e.Job, e.PanicValue)
	}
	return fmt.Sprintf("job %q failed: %v", e.Job, e.Cause)
}

func (e *FaultError) Unwrap() error { return e.Cause }

// WorkerDiedError is the reason attached to a job that was in flight on a
// background worker whose goroutine terminated outside the contained-fault
// path. Its true completion status is unknown; it is never retried.
type WorkerDiedError struct {
	Job      string
	WorkerID int
}

func (e *WorkerDiedError) Error() string {
	return fmt.Sprintf("worker %d died while running job %q", e.WorkerID, e.Job)
}

// =============================================================================
// job: internal record, mutated only by the scheduler state machine
// =============================================================================

type job struct {
	handle   JobHandle
	name     string
	priority JobPriority
	flags    JobFlags
	body     JobFunc

	state           atomic.Int32
	pendingDeps     atomic.Int32
	enqueued        atomic.Bool
	cancelRequested atomic.Bool

	// mu guards the edge lists and the result/fault slots during finalization.
	mu         sync.Mutex
	deps       []*job
	dependents []*job

	result any
	fault  error

	done       chan struct{}
	onComplete func(JobHandle, JobState)

	// groupNext points at the next member of the same JobGroup, if any.
	// Workers use it as a soft affinity hint to continue a group inline.
	groupNext *job
}

func newJob(name string, body JobFunc, priority JobPriority, flags JobFlags) *job {
	return &job{
		name:     name,
		priority: priority,
		flags:    flags,
		body:     body,
		done:     make(chan struct{}),
	}
}

func (j *job) currentState() JobState {
	return JobState(j.state.Load())
}

// transition moves the state machine forward. States are monotonic; a failed
// CAS means another thread already advanced it.
func (j *job) transition(from, to JobState) bool {
	return j.state.CompareAndSwap(int32(from), int32(to))
}

// =============================================================================
// JobContext: per-invocation view handed to job bodies
// =============================================================================

// JobContext is passed to every job body. It exposes the system's run
// context for blocking operations and a cooperative cancellation check for
// long-running bodies.
type JobContext struct {
	ctx      context.Context
	job      *job
	workerID int
}

// Context returns the JobSystem's run context. It is canceled when the
// system shuts down.
func (c *JobContext) Context() context.Context { return c.ctx }

// Canceled reports whether Cancel was called on this job after it started
// running. Bodies may poll it to early-exit; the result of a body that
// observed cancellation is discarded either way.
func (c *JobContext) Canceled() bool { return c.job.cancelRequested.Load() }

// Handle returns the handle of the executing job.
func (c *JobContext) Handle() JobHandle { return c.job.handle }

// Name returns the job's diagnostic label.
func (c *JobContext) Name() string { return c.job.name }

// WorkerID returns the executing background worker's ID, or -1 on the
// main-thread lane.
func (c *JobContext) WorkerID() int { return c.workerID }
