// Package jobs provides a dependency-aware, multi-threaded job scheduling
// and execution engine with a frame-synchronized main-thread lane.
//
// Collaborators submit units of work with explicit dependency references;
// the scheduler validates the dependency graph (no cycles, no self edges),
// dispatches ready jobs to a pool of background workers ordered by
// priority, and drains main-thread jobs inside an explicit per-frame
// Update() call.
//
// # Quick Start
//
// Create and start a JobSystem, then drive its main-thread lane from your
// frame loop:
//
//	sys := jobs.New(jobs.DefaultConfig())
//	if err := sys.Startup(); err != nil {
//		log.Fatal(err)
//	}
//	defer sys.Shutdown()
//
//	load, _ := sys.Submit(func(jc *jobs.JobContext) (any, error) {
//		return loadAsset("hero.mesh"), nil
//	}, nil, jobs.PriorityNormal, 0)
//
//	upload, _ := sys.Submit(func(jc *jobs.JobContext) (any, error) {
//		mesh, _ := jobs.ResultAs[*Mesh](sys, load)
//		uploadToGPU(mesh)
//		return nil, nil
//	}, []jobs.JobHandle{load}, jobs.PriorityHigh, jobs.FlagRunOnMainThread)
//
//	for running {
//		sys.Update() // drains main-thread jobs, runs health checks
//		renderFrame()
//	}
//	_ = upload
//
// # Key Concepts
//
// Job: a unit of schedulable work with identity, priority, dependency set,
// and a monotonic state machine (Pending, Running, Succeeded, Canceled).
// Jobs become ready strictly according to the dependency graph, never
// submission order.
//
// JobGroup: an ordered sub-sequence of jobs chained into a forced linear
// dependency order, guaranteed to execute sequentially and kept on the same
// worker where possible.
//
// Cancellation cascades: canceling a job (or a fault inside its body)
// synchronously finalizes every transitive dependent as Canceled. A job
// already running completes naturally; its completion path re-checks the
// cancellation mark.
//
// Lifecycle: AutoRelease jobs are reclaimed by the scheduler after their
// terminal state and completion callback; caller-owned jobs pin their arena
// slot until Release.
//
// There is no global scheduler: every JobSystem is an explicit instance
// injected into its collaborators.
package jobs
