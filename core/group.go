package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// JobGroup: ordered members with guaranteed sequential execution
// =============================================================================

// SubmitGroup registers the bodies as a sequential group: member[i+1]
// depends on member[i], so the members execute in order even while
// unrelated jobs run concurrently. The returned handle is the last
// member's; the group's aggregate state mirrors it. Groups are closed at
// submission, no members can be appended afterwards.
func (s *JobSystem) SubmitGroup(bodies []JobFunc, priority JobPriority, flags JobFlags) (JobHandle, error) {
	return s.SubmitGroupWithOptions(bodies, SubmitOptions{Priority: priority, Flags: flags})
}

// SubmitGroupWithOptions registers a sequential group with the full option
// set. Dependencies gate the first member; OnComplete fires with the last
// member's terminal state.
func (s *JobSystem) SubmitGroupWithOptions(bodies []JobFunc, opts SubmitOptions) (JobHandle, error) {
	if len(bodies) == 0 {
		return JobHandle{}, errors.New("empty job group")
	}
	for _, body := range bodies {
		if body == nil {
			return JobHandle{}, errors.New("nil job body in group")
		}
	}
	if s.phase.Load() != phaseRunning {
		return JobHandle{}, ErrNotRunning
	}

	deps, err := s.resolveDependencies(opts.Dependencies)
	if err != nil {
		return JobHandle{}, err
	}

	members := make([]*job, len(bodies))
	for i, body := range bodies {
		name := resolveJobName(body, opts.Name)
		if opts.Name != "" {
			name = fmt.Sprintf("%s[%d]", opts.Name, i)
		}
		members[i] = newJob(name, body, opts.Priority, opts.Flags)
	}
	last := members[len(members)-1]
	last.onComplete = opts.OnComplete

	// External dependencies gate the head of the chain only; validate them
	// before committing anything.
	for _, d := range deps {
		if err := validateEdge(members[0], d); err != nil {
			s.rejectSubmission(members[0].name, err)
			return JobHandle{}, err
		}
	}

	// Chain members into a forced linear dependency order and leave the
	// affinity hint so a worker finishing member[i] continues with
	// member[i+1] in place.
	for i := 0; i < len(members)-1; i++ {
		members[i].groupNext = members[i+1]
	}

	s.register(members[0], deps)
	for i := 1; i < len(members); i++ {
		s.register(members[i], members[i-1:i])
	}

	return last.handle, nil
}
