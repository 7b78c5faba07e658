package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// JobSystem: the scheduler facade
// =============================================================================

// System lifecycle phases: Stopped -> Running -> Stopping -> Stopped.
const (
	phaseStopped int32 = iota
	phaseRunning
	phaseStopping
)

func phaseName(p int32) string {
	switch p {
	case phaseRunning:
		return "Running"
	case phaseStopping:
		return "Stopping"
	default:
		return "Stopped"
	}
}

// JobSystem composes the job arena, dependency graph, ready queues, worker
// pool, main-thread lane, and health monitor behind one instance. There is
// no process-wide instance: collaborators receive an explicit *JobSystem.
//
// All mutation of job state goes through this facade; job bodies must not
// touch another job's state directly.
type JobSystem struct {
	cfg Config
	id  string

	phase atomic.Int32

	arena           *jobArena
	backgroundQueue *readyQueue
	mainQueue       *readyQueue

	workers     []*worker
	workerCount int
	workerWG    sync.WaitGroup
	stopCh      chan struct{}

	// respawnMu serializes health-check respawns against Shutdown, so a
	// workerWG.Add from a respawn can never run concurrently with the
	// final workerWG.Wait.
	respawnMu sync.Mutex

	runCtx    context.Context
	runCancel context.CancelFunc

	activeJobs atomic.Int32

	health  healthMonitor
	history executionHistory
}

// NewJobSystem creates a stopped JobSystem. Call Startup before submitting.
func NewJobSystem(cfg Config) *JobSystem {
	cfg.fillDefaults()

	workerCount := cfg.Workers
	if workerCount == AutoWorkers {
		workerCount = runtime.NumCPU() - 1
		if workerCount < 2 {
			workerCount = 2
		}
	}
	if workerCount < 0 {
		workerCount = 0
	}

	s := &JobSystem{
		cfg:             cfg,
		id:              uuid.NewString(),
		arena:           newJobArena(),
		backgroundQueue: newReadyQueue(workerCount * 2),
		mainQueue:       newReadyQueue(1),
		workers:         make([]*worker, workerCount),
		workerCount:     workerCount,
		history:         newExecutionHistory(cfg.HistoryCapacity),
	}
	s.health = healthMonitor{sys: s, interval: cfg.HealthCheckInterval}
	return s
}

// ID returns the instance identifier used in diagnostics.
func (s *JobSystem) ID() string { return s.id }

// WorkerCount returns the configured number of background workers.
func (s *JobSystem) WorkerCount() int { return s.workerCount }

// =============================================================================
// Startup / Shutdown
// =============================================================================

// Startup transitions Stopped -> Running and spawns the background workers.
func (s *JobSystem) Startup() error {
	if !s.phase.CompareAndSwap(phaseStopped, phaseRunning) {
		return ErrAlreadyRunning
	}

	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	s.stopCh = make(chan struct{})

	for i := 0; i < s.workerCount; i++ {
		s.spawnWorker(i)
	}

	s.cfg.Logger.Info("job system started",
		F("system", s.id),
		F("workers", s.workerCount))
	return nil
}

func (s *JobSystem) spawnWorker(id int) {
	w := newWorker(id, s)
	// alive is set before the goroutine is scheduled so a health check
	// between spawn and first pop does not respawn a healthy worker.
	w.alive.Store(true)
	s.workers[id] = w
	s.workerWG.Add(1)
	go w.run()
}

// Shutdown transitions Running -> Stopping -> Stopped: every job still
// Pending is canceled (with cascade), Running jobs are waited on up to the
// configured timeout, then workers are joined. Idempotent once Stopped.
func (s *JobSystem) Shutdown() error {
	if !s.phase.CompareAndSwap(phaseRunning, phaseStopping) {
		// Already stopped, stopping on another thread, or never started.
		return nil
	}

	s.cfg.Logger.Info("job system stopping", F("system", s.id))

	// Taking respawnMu drains any in-flight health-check respawn; the phase
	// is Stopping now, so no further respawn can start and every
	// workerWG.Add already happened before the join below.
	s.respawnMu.Lock()
	// Cancel everything that has not started; cascades cover dependents.
	shutdownReason := fmt.Errorf("%w: system shutting down", ErrCanceled)
	for _, j := range s.arena.liveJobs() {
		if j.currentState() == JobStatePending {
			s.cancelJob(j, shutdownReason, "shutdown", false)
		}
	}
	s.backgroundQueue.clear()
	s.mainQueue.clear()
	s.respawnMu.Unlock()

	timedOut := !s.waitForActiveJobs(s.cfg.ShutdownTimeout)

	close(s.stopCh)
	s.runCancel()

	joined := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(s.cfg.ShutdownTimeout):
		timedOut = true
	}

	s.phase.Store(phaseStopped)

	if timedOut {
		// Remaining threads are abandoned; no further job state changes are
		// guaranteed past this point.
		s.cfg.Logger.Error("shutdown timed out, abandoning workers",
			F("system", s.id),
			F("active", s.activeJobs.Load()))
		return ErrShutdownTimeout
	}

	s.cfg.Logger.Info("job system stopped", F("system", s.id))
	return nil
}

// waitForActiveJobs polls until no job is Running or the timeout elapses.
func (s *JobSystem) waitForActiveJobs(timeout time.Duration) bool {
	if s.activeJobs.Load() == 0 {
		return true
	}

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return false
		case <-ticker.C:
			if s.activeJobs.Load() == 0 {
				return true
			}
		}
	}
}

// =============================================================================
// Submission
// =============================================================================

// SubmitOptions carries the optional attributes of a submission.
type SubmitOptions struct {
	// Name labels the job for diagnostics. Unnamed jobs get a label derived
	// from the body's function symbol.
	Name string

	Priority JobPriority
	Flags    JobFlags

	// Dependencies must all reach Succeeded before the job becomes ready.
	Dependencies []JobHandle

	// OnComplete fires exactly once when the job reaches a terminal state,
	// before any AutoRelease reclaim. It runs on the finalizing thread and
	// must not block.
	OnComplete func(JobHandle, JobState)
}

// Submit registers a job. Dependency validation failures (stale handle,
// self-edge, cycle) are programming errors and are reported synchronously;
// the graph is left unchanged by a rejected call.
func (s *JobSystem) Submit(body JobFunc, deps []JobHandle, priority JobPriority, flags JobFlags) (JobHandle, error) {
	return s.SubmitWithOptions(body, SubmitOptions{
		Priority:     priority,
		Flags:        flags,
		Dependencies: deps,
	})
}

// SubmitWithOptions registers a job with the full option set.
func (s *JobSystem) SubmitWithOptions(body JobFunc, opts SubmitOptions) (JobHandle, error) {
	if body == nil {
		return JobHandle{}, errNilBody
	}
	if s.phase.Load() != phaseRunning {
		return JobHandle{}, ErrNotRunning
	}

	deps, err := s.resolveDependencies(opts.Dependencies)
	if err != nil {
		return JobHandle{}, err
	}

	j := newJob(resolveJobName(body, opts.Name), body, opts.Priority, opts.Flags)
	j.onComplete = opts.OnComplete

	// Validate every prospective edge before committing any of them.
	for _, d := range deps {
		if err := validateEdge(j, d); err != nil {
			s.rejectSubmission(j.name, err)
			return JobHandle{}, err
		}
	}

	s.register(j, deps)
	return j.handle, nil
}

// resolveDependencies maps handles to live jobs, deduplicated, rejecting
// stale references.
func (s *JobSystem) resolveDependencies(handles []JobHandle) ([]*job, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	seen := make(map[*job]struct{}, len(handles))
	deps := make([]*job, 0, len(handles))
	for _, h := range handles {
		dj, ok := s.arena.get(h)
		if !ok {
			err := fmt.Errorf("%w: dependency %s", ErrStaleHandle, h)
			s.rejectSubmission("", err)
			return nil, err
		}
		if _, dup := seen[dj]; dup {
			continue
		}
		seen[dj] = struct{}{}
		deps = append(deps, dj)
	}
	return deps, nil
}

func (s *JobSystem) rejectSubmission(name string, err error) {
	s.cfg.Metrics.RecordJobRejected(rejectionReason(err))
	s.cfg.Logger.Error("job submission rejected",
		F("system", s.id),
		F("job", name),
		F("error", err))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrCycleDetected):
		return "cycle"
	case errors.Is(err, ErrSelfDependency):
		return "self_dependency"
	case errors.Is(err, ErrStaleHandle):
		return "stale_dependency"
	default:
		return "invalid"
	}
}

// register commits the validated job: allocates its arena slot, wires edges,
// and releases the registration guard so the job can become ready. A job
// whose dependency was already Canceled is born canceled.
func (s *JobSystem) register(j *job, deps []*job) {
	// Registration guard: holds the counter above zero until every edge is
	// wired, so a dependency completing mid-registration cannot enqueue the
	// job early.
	j.pendingDeps.Store(1)

	// The slot is stamped before any edge is published. The moment commitEdge
	// unlocks, the dependency's completion path may observe j, so the handle
	// must already be readable.
	s.arena.alloc(j)

	for _, d := range deps {
		// Count the edge before publishing it. The completion path decrements
		// as soon as j appears in d.dependents; crediting afterwards would let
		// the counter reach zero with edges still unwired.
		j.pendingDeps.Add(1)
		if !commitEdge(j, d) {
			// Terminal dependency, no edge recorded.
			j.pendingDeps.Add(-1)
		}
	}

	if j.cancelRequested.Load() {
		s.cancelJob(j, fmt.Errorf("%w: dependency already canceled", ErrCanceled), "cascade", false)
		// Burn the guard so a stray timer or decrement cannot resurrect it.
		j.pendingDeps.Add(-1)
		return
	}

	if decrementAndCheckReady(j) {
		s.enqueueReady(j)
	}
}

// enqueueReady routes a ready job to its lane.
func (s *JobSystem) enqueueReady(j *job) {
	if j.flags.Has(JobFlagRunOnMainThread) {
		s.mainQueue.push(j)
	} else {
		s.backgroundQueue.push(j)
	}
}

// =============================================================================
// Finalization & readiness propagation
// =============================================================================

// finalizeSucceeded publishes the result, notifies waiters, and propagates
// readiness to dependents. When allowInline is set and the completed job's
// group successor just became ready on the background lane, it is returned
// for inline execution on the same worker instead of being queued.
func (s *JobSystem) finalizeSucceeded(j *job, result any, allowInline bool) *job {
	j.mu.Lock()
	j.result = result
	j.mu.Unlock()

	if !j.transition(JobStateRunning, JobStateSucceeded) {
		return nil
	}
	s.activeJobs.Add(-1)

	// The state store above happens-before every decrement below, so a
	// dependent observing its counter reach zero also observes Succeeded.
	var inline *job
	for _, dep := range j.dependentsSnapshot() {
		if !decrementAndCheckReady(dep) {
			continue
		}
		if allowInline && inline == nil && dep == j.groupNext && !dep.flags.Has(JobFlagRunOnMainThread) {
			inline = dep
			continue
		}
		s.enqueueReady(dep)
	}

	close(j.done)
	s.notifyComplete(j)
	return inline
}

// markCanceled attempts to move j to Canceled from any non-terminal state.
// A Running job is only finalized when force is set (fault path, dead
// worker, or the completion re-check); otherwise cancellation of running
// jobs is cooperative. Returns true if this call performed the transition.
func (s *JobSystem) markCanceled(j *job, reason error, metricReason string, force bool) bool {
	for {
		st := j.currentState()
		if st.Terminal() {
			return false
		}
		if st == JobStateRunning && !force {
			j.cancelRequested.Store(true)
			return false
		}
		if !j.transition(st, JobStateCanceled) {
			continue
		}

		if st == JobStateRunning {
			s.activeJobs.Add(-1)
		}
		j.mu.Lock()
		j.fault = reason
		j.mu.Unlock()

		s.cfg.Metrics.RecordJobCanceled(metricReason)
		close(j.done)
		s.notifyComplete(j)
		return true
	}
}

// cancelJob marks j Canceled and synchronously cascades over its transitive
// dependents. Cascaded jobs never enter a ready queue.
func (s *JobSystem) cancelJob(j *job, reason error, metricReason string, force bool) {
	j.cancelRequested.Store(true)
	if !s.markCanceled(j, reason, metricReason, force) {
		// Already terminal (idempotent) or running cooperatively; a running
		// job cascades from its own completion path.
		return
	}

	cascadeReason := fmt.Errorf("%w: upstream job %q canceled", ErrCanceled, j.name)
	for _, dep := range collectCascade(j) {
		dep.cancelRequested.Store(true)
		s.markCanceled(dep, cascadeReason, "cascade", false)
	}
}

// notifyComplete fires the completion callback and performs the AutoRelease
// reclaim, strictly in that order.
func (s *JobSystem) notifyComplete(j *job) {
	if j.onComplete != nil {
		j.onComplete(j.handle, j.currentState())
	}
	if j.flags.Has(JobFlagAutoRelease) {
		s.arena.release(j.handle)
	}
}

// =============================================================================
// Collaborator operations
// =============================================================================

// Cancel requests cancellation. Pending jobs (and their transitive
// dependents) are finalized immediately; a Running job is marked and
// finalized Canceled by its own completion path. Idempotent.
func (s *JobSystem) Cancel(h JobHandle) error {
	j, ok := s.arena.get(h)
	if !ok {
		return ErrStaleHandle
	}
	s.cancelJob(j, ErrCanceled, "canceled", false)
	return nil
}

// Wait blocks the calling thread until the job reaches a terminal state.
func (s *JobSystem) Wait(h JobHandle) error {
	j, ok := s.arena.get(h)
	if !ok {
		return ErrStaleHandle
	}
	<-j.done
	return nil
}

// WaitForResult blocks until terminal and returns the result, or the fault
// reason if the job did not succeed.
func (s *JobSystem) WaitForResult(h JobHandle) (any, error) {
	j, ok := s.arena.get(h)
	if !ok {
		return nil, ErrStaleHandle
	}
	<-j.done

	if j.currentState() == JobStateSucceeded {
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.result, nil
	}

	j.mu.Lock()
	fault := j.fault
	j.mu.Unlock()
	if fault != nil {
		return nil, fault
	}
	return nil, ErrNoResult
}

// TryGetResult returns the result without blocking. The second return is
// false until the job has Succeeded.
func (s *JobSystem) TryGetResult(h JobHandle) (any, bool) {
	j, ok := s.arena.get(h)
	if !ok {
		return nil, false
	}
	if j.currentState() != JobStateSucceeded {
		return nil, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, true
}

// ResultAs resolves a job's result as T. ok is false until the job has
// Succeeded or when the result is not a T.
func ResultAs[T any](s *JobSystem, h JobHandle) (T, bool) {
	v, ok := s.TryGetResult(h)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// State reports the current job state.
func (s *JobSystem) State(h JobHandle) (JobState, error) {
	j, ok := s.arena.get(h)
	if !ok {
		return JobStatePending, ErrStaleHandle
	}
	return j.currentState(), nil
}

// Fault returns the reason attached to a Canceled job, or nil.
func (s *JobSystem) Fault(h JobHandle) error {
	j, ok := s.arena.get(h)
	if !ok {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fault
}

// Release frees a caller-owned job's slot. AutoRelease jobs are reclaimed by
// the scheduler instead. Releasing an already-released handle is a no-op.
func (s *JobSystem) Release(h JobHandle) bool {
	return s.arena.release(h)
}

// =============================================================================
// Main-thread lane
// =============================================================================

// Update must be called once per frame from the designated main thread. It
// drains every currently ready main-thread job inline (priority order), runs
// the periodic worker health check, and samples queue depths. It never
// blocks waiting for work.
func (s *JobSystem) Update() error {
	if s.phase.Load() != phaseRunning {
		return ErrNotRunning
	}

	for {
		j, ok := s.mainQueue.tryPop()
		if !ok {
			break
		}
		s.runJob(j, nil)
	}

	s.health.maybeCheck(time.Now())

	s.cfg.Metrics.RecordQueueDepth("background", s.backgroundQueue.len())
	s.cfg.Metrics.RecordQueueDepth("main_thread", s.mainQueue.len())
	return nil
}

// =============================================================================
// Diagnostics
// =============================================================================

// Stats returns a snapshot of scheduler state.
func (s *JobSystem) Stats() Stats {
	return Stats{
		State:            phaseName(s.phase.Load()),
		Workers:          s.workerCount,
		WorkerRestarts:   s.health.restarts.Load(),
		QueuedBackground: s.backgroundQueue.len(),
		QueuedMainThread: s.mainQueue.len(),
		Active:           int(s.activeJobs.Load()),
		LiveJobs:         s.arena.liveCount(),
	}
}

// RecentExecutions returns up to limit finished executions, newest first.
func (s *JobSystem) RecentExecutions(limit int) []ExecutionRecord {
	return s.history.Recent(limit)
}
