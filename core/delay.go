package core

import "time"

// SubmitDelayed registers a dependency-free job that becomes ready after
// delay. Uses time.AfterFunc, independent of the worker pool, so scheduler
// load does not skew timers. A delayed job canceled (or swept by Shutdown)
// before its timer fires never executes.
func (s *JobSystem) SubmitDelayed(body JobFunc, delay time.Duration, opts SubmitOptions) (JobHandle, error) {
	if len(opts.Dependencies) > 0 {
		return JobHandle{}, ErrDelayedDependencies
	}
	if delay <= 0 {
		return s.SubmitWithOptions(body, opts)
	}
	if body == nil {
		return JobHandle{}, errNilBody
	}
	if s.phase.Load() != phaseRunning {
		return JobHandle{}, ErrNotRunning
	}

	j := newJob(resolveJobName(body, opts.Name), body, opts.Priority, opts.Flags)
	j.onComplete = opts.OnComplete

	// The registration guard doubles as the timer's outstanding count: the
	// job stays unready until the timer releases it.
	j.pendingDeps.Store(1)
	s.arena.alloc(j)

	time.AfterFunc(delay, func() {
		if s.phase.Load() != phaseRunning {
			return
		}
		if decrementAndCheckReady(j) {
			s.enqueueReady(j)
		}
	})

	return j.handle, nil
}
