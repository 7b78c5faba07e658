package core

import (
	"sync/atomic"
	"time"
)

// healthMonitor detects background workers whose goroutines terminated
// outside the contained-fault path and respawns them. Checks run on the
// main thread inside Update(), throttled to the configured interval.
type healthMonitor struct {
	sys       *JobSystem
	interval  time.Duration
	lastCheck time.Time
	restarts  atomic.Int64
}

func (m *healthMonitor) maybeCheck(now time.Time) {
	if now.Sub(m.lastCheck) < m.interval {
		return
	}
	m.lastCheck = now
	m.check()
}

func (m *healthMonitor) check() {
	s := m.sys
	if s.phase.Load() != phaseRunning {
		return
	}

	for id, w := range s.workers {
		if w == nil || !w.persistent || w.alive.Load() {
			continue
		}

		// The worker's last recorded job never reached a terminal state; its
		// true completion status is unknown and unrecoverable, so it is
		// finalized Canceled and never retried.
		if j := w.current.Load(); j != nil {
			s.cfg.Logger.Warn("finalizing job lost with dead worker",
				F("system", s.id),
				F("worker", id),
				F("job", j.name))
			s.cancelJob(j, &WorkerDiedError{Job: j.name, WorkerID: id}, "worker_died", true)
		}

		// The phase re-check and spawn run under the lock Shutdown takes
		// when it moves past Running, so a respawn's workerWG.Add can never
		// overlap the final workerWG.Wait.
		s.respawnMu.Lock()
		if s.phase.Load() == phaseRunning {
			s.cfg.Logger.Warn("respawning dead background worker",
				F("system", s.id),
				F("worker", id))
			s.cfg.Metrics.RecordWorkerRestart(id)
			m.restarts.Add(1)
			s.spawnWorker(id)
		}
		s.respawnMu.Unlock()
	}
}
