package core

import "fmt"

// =============================================================================
// Dependency graph: edges, readiness, cascade cancellation
// =============================================================================

// validateEdge checks the prospective edge "j depends on dep" without
// mutating anything: self-edges and edges that would close a cycle are
// rejected, and the dependency set of a job that already became ready is
// frozen.
func validateEdge(j, dep *job) error {
	if j == dep {
		return ErrSelfDependency
	}
	if j.enqueued.Load() || j.currentState() != JobStatePending {
		return ErrEdgeFrozen
	}
	if reachable(dep, j) {
		return fmt.Errorf("%w: %q -> %q", ErrCycleDetected, j.name, dep.name)
	}
	return nil
}

// commitEdge records a validated edge. Returns false without recording
// anything when dep is already terminal: a Succeeded dependency is simply
// satisfied, while a Canceled one marks the dependent for the caller to
// finalize born-canceled once registration completes.
func commitEdge(j, dep *job) (edgeAdded bool) {
	dep.mu.Lock()
	defer dep.mu.Unlock()

	switch dep.currentState() {
	case JobStateSucceeded:
		return false
	case JobStateCanceled:
		j.cancelRequested.Store(true)
		return false
	}

	dep.dependents = append(dep.dependents, j)

	j.mu.Lock()
	j.deps = append(j.deps, dep)
	j.mu.Unlock()

	return true
}

// addDependency validates and commits a single edge. The rejected call
// leaves the graph unchanged.
func addDependency(j, dep *job) (edgeAdded bool, err error) {
	if err := validateEdge(j, dep); err != nil {
		return false, err
	}
	return commitEdge(j, dep), nil
}

// reachable walks forward dependency edges from start looking for target.
// Iterative DFS; the registration path is the only writer of deps, so a
// snapshot per node is enough.
func reachable(start, target *job) bool {
	if start == target {
		return true
	}

	visited := map[*job]struct{}{start: {}}
	stack := []*job{start}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n.mu.Lock()
		deps := make([]*job, len(n.deps))
		copy(deps, n.deps)
		n.mu.Unlock()

		for _, d := range deps {
			if d == target {
				return true
			}
			if _, ok := visited[d]; ok {
				continue
			}
			visited[d] = struct{}{}
			stack = append(stack, d)
		}
	}
	return false
}

// dependentsSnapshot copies the back-edge list. Finalization reads it after
// the terminal state is published, so edges appended later observe the
// terminal state instead.
func (j *job) dependentsSnapshot() []*job {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]*job, len(j.dependents))
	copy(out, j.dependents)
	return out
}

// edgeCount reports the number of forward edges. Used by validation tests.
func (j *job) edgeCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.deps)
}

// decrementAndCheckReady drops one outstanding dependency and reports
// whether the job just became ready. The enqueued CAS guarantees a job
// enters a ready queue at most once even under concurrent decrements from
// multiple completing dependencies.
func decrementAndCheckReady(j *job) bool {
	if j.pendingDeps.Add(-1) != 0 {
		return false
	}
	if j.currentState() != JobStatePending {
		return false
	}
	return j.enqueued.CompareAndSwap(false, true)
}

// collectCascade walks back-edges breadth-first from root and returns every
// transitive dependent, deduplicated, in traversal order. The caller
// finalizes each as Canceled; none of them will enter a ready queue because
// cancellation wins the enqueued CAS or the state check.
func collectCascade(root *job) []*job {
	visited := map[*job]struct{}{root: {}}
	queue := root.dependentsSnapshot()
	var out []*job

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if _, ok := visited[n]; ok {
			continue
		}
		visited[n] = struct{}{}
		out = append(out, n)
		queue = append(queue, n.dependentsSnapshot()...)
	}
	return out
}
