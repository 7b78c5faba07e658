package core

import "sync"

const defaultArenaCap = 64

// jobArena owns the storage for every live job. Handles are slot indices
// paired with a generation; releasing a slot bumps the generation so stale
// handles are rejected instead of touching a recycled job.
type jobArena struct {
	mu    sync.RWMutex
	slots []arenaSlot
	free  []uint32
	live  int
}

type arenaSlot struct {
	job        *job
	generation uint32
}

func newJobArena() *jobArena {
	return &jobArena{
		slots: make([]arenaSlot, 0, defaultArenaCap),
	}
}

// alloc places the job into a slot and stamps its handle.
func (a *jobArena) alloc(j *job) JobHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[index].job = j
	} else {
		index = uint32(len(a.slots))
		// Generation starts at 1 so the zero JobHandle is never live.
		a.slots = append(a.slots, arenaSlot{job: j, generation: 1})
	}

	a.live++
	j.handle = JobHandle{index: index, generation: a.slots[index].generation}
	return j.handle
}

// get resolves a handle, rejecting stale generations.
func (a *jobArena) get(h JobHandle) (*job, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if int(h.index) >= len(a.slots) {
		return nil, false
	}
	slot := a.slots[h.index]
	if slot.job == nil || slot.generation != h.generation {
		return nil, false
	}
	return slot.job, true
}

// release frees the slot and invalidates every copy of the handle. Releasing
// a stale handle is a no-op, which makes double release safe.
func (a *jobArena) release(h JobHandle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(h.index) >= len(a.slots) {
		return false
	}
	slot := &a.slots[h.index]
	if slot.job == nil || slot.generation != h.generation {
		return false
	}

	slot.job = nil
	slot.generation++
	a.free = append(a.free, h.index)
	a.live--
	return true
}

// liveCount returns the number of occupied slots.
func (a *jobArena) liveCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// liveJobs snapshots every occupied slot. Used by the shutdown sweep.
func (a *jobArena) liveJobs() []*job {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*job, 0, a.live)
	for _, slot := range a.slots {
		if slot.job != nil {
			out = append(out, slot.job)
		}
	}
	return out
}
