package jobs

import "github.com/jayrulez/Sedulous-Serenity/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the jobs package for most use cases.

// JobSystem is the scheduler facade: registration, dispatch, cancellation,
// shutdown.
type JobSystem = core.JobSystem

// JobHandle is a generation-checked reference to a submitted job.
type JobHandle = core.JobHandle

// JobFunc is the unit of schedulable work.
type JobFunc = core.JobFunc

// JobContext is the per-invocation view handed to job bodies.
type JobContext = core.JobContext

// JobState is the monotonic job state machine.
type JobState = core.JobState

// JobPriority orders ready jobs: High before Normal, FIFO within a tier.
type JobPriority = core.JobPriority

// JobFlags combines RunOnMainThread and AutoRelease.
type JobFlags = core.JobFlags

// SubmitOptions carries the optional attributes of a submission.
type SubmitOptions = core.SubmitOptions

// Config holds JobSystem configuration.
type Config = core.Config

// Stats is a point-in-time snapshot of scheduler state.
type Stats = core.Stats

// ExecutionRecord captures a finished job execution event.
type ExecutionRecord = core.ExecutionRecord

// Logger, Metrics and PanicHandler are the pluggable diagnostic interfaces.
type (
	Logger       = core.Logger
	Field        = core.Field
	Metrics      = core.Metrics
	PanicHandler = core.PanicHandler
)

// FaultError is the reason attached to a job whose body failed.
type FaultError = core.FaultError

// WorkerDiedError is the reason attached to a job lost with a dead worker.
type WorkerDiedError = core.WorkerDiedError

// State constants
const (
	StatePending   JobState = core.JobStatePending
	StateRunning   JobState = core.JobStateRunning
	StateSucceeded JobState = core.JobStateSucceeded
	StateCanceled  JobState = core.JobStateCanceled
)

// Priority constants
const (
	PriorityNormal JobPriority = core.JobPriorityNormal
	PriorityHigh   JobPriority = core.JobPriorityHigh
)

// Flag constants
const (
	FlagRunOnMainThread JobFlags = core.JobFlagRunOnMainThread
	FlagAutoRelease     JobFlags = core.JobFlagAutoRelease
)

// AutoWorkers sizes the background pool from the CPU count.
const AutoWorkers = core.AutoWorkers

// Sentinel errors
var (
	ErrSelfDependency  = core.ErrSelfDependency
	ErrCycleDetected   = core.ErrCycleDetected
	ErrStaleHandle     = core.ErrStaleHandle
	ErrEdgeFrozen      = core.ErrEdgeFrozen
	ErrNotRunning      = core.ErrNotRunning
	ErrAlreadyRunning  = core.ErrAlreadyRunning
	ErrShutdownTimeout = core.ErrShutdownTimeout
	ErrCanceled        = core.ErrCanceled
	ErrDelayedDeps     = core.ErrDelayedDependencies
	ErrNoResult        = core.ErrNoResult
)

// Structured log field constructor
var F = core.F

// Logger constructors
var (
	NewDefaultLogger = core.NewDefaultLogger
	NewNoOpLogger    = core.NewNoOpLogger
	NewLogrusLogger  = core.NewLogrusLogger
)
