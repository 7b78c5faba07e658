package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling job body panics
// =============================================================================

// PanicHandler is called when a job body panics during execution. The panic
// never propagates past the worker boundary; the job is finalized Canceled
// with the panic attached as its fault reason.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a job body panics.
	//
	// Parameters:
	// - jobName: the diagnostic label of the panicked job
	// - workerID: executing background worker ID, or -1 for the main-thread lane
	// - panicInfo: the panic value recovered from the body
	// - stackTrace: the stack trace at the time of panic
	HandlePanic(jobName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(jobName string, workerID int, panicInfo any, stackTrace []byte) {
	if workerID >= 0 {
		fmt.Printf("[Worker %d] Job %q panic: %v\nStack trace:\n%s",
			workerID, jobName, panicInfo, stackTrace)
	} else {
		fmt.Printf("[MainThread] Job %q panic: %v\nStack trace:\n%s",
			jobName, panicInfo, stackTrace)
	}
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting job execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus,
// StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting dispatch.
type Metrics interface {
	// RecordJobDuration records how long a job body took to execute.
	RecordJobDuration(priority JobPriority, duration time.Duration)

	// RecordJobPanic records that a job body panicked.
	RecordJobPanic(jobName string)

	// RecordJobCanceled records a job finalized Canceled, with a coarse
	// reason ("canceled", "fault", "worker_died", "shutdown", "cascade").
	RecordJobCanceled(reason string)

	// RecordJobRejected records a submission rejected at validation time.
	RecordJobRejected(reason string)

	// RecordQueueDepth records the current depth of a ready queue.
	// lane is "background" or "main_thread".
	RecordQueueDepth(lane string, depth int)

	// RecordWorkerRestart records the health monitor respawning a dead
	// background worker.
	RecordWorkerRestart(workerID int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordJobDuration(priority JobPriority, duration time.Duration) {}
func (m *NilMetrics) RecordJobPanic(jobName string)                                  {}
func (m *NilMetrics) RecordJobCanceled(reason string)                                {}
func (m *NilMetrics) RecordJobRejected(reason string)                                {}
func (m *NilMetrics) RecordQueueDepth(lane string, depth int)                        {}
func (m *NilMetrics) RecordWorkerRestart(workerID int)                               {}

// =============================================================================
// Config: Configuration for JobSystem
// =============================================================================

// AutoWorkers lets Startup size the background pool from the CPU count
// (NumCPU-1, minimum 2).
const AutoWorkers = -1

const (
	defaultShutdownTimeout     = 5 * time.Second
	defaultHealthCheckInterval = time.Second
)

// Config holds configuration options for a JobSystem. All handlers are
// optional; if not provided, default implementations will be used.
type Config struct {
	// Workers is the number of background workers. AutoWorkers derives it
	// from the CPU count; 0 is valid and means only main-thread jobs ever
	// execute.
	Workers int

	// ShutdownTimeout bounds how long Shutdown waits for running jobs and
	// worker goroutines. Defaults to 5s.
	ShutdownTimeout time.Duration

	// HealthCheckInterval is the minimum time between worker liveness checks
	// performed inside Update(). Defaults to 1s.
	HealthCheckInterval time.Duration

	// HistoryCapacity sizes the execution record ring buffer. Defaults to 100.
	HistoryCapacity int

	// PanicHandler is called when a job body panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger receives structured diagnostics. Defaults to NewDefaultLogger().
	Logger Logger
}

// DefaultConfig returns a config with auto-detected workers and default
// handlers.
func DefaultConfig() Config {
	return Config{
		Workers:             AutoWorkers,
		ShutdownTimeout:     defaultShutdownTimeout,
		HealthCheckInterval: defaultHealthCheckInterval,
	}
}

func (c *Config) fillDefaults() {
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = defaultHealthCheckInterval
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &DefaultPanicHandler{}
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
}
