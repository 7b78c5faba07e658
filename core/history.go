package core

import (
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"
)

const defaultHistoryCapacity = 100

// ExecutionRecord captures a finished job execution event.
type ExecutionRecord struct {
	Handle     JobHandle
	Name       string
	Priority   JobPriority
	WorkerID   int
	State      JobState
	Fault      error
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

type executionHistory struct {
	mu    sync.Mutex
	items []ExecutionRecord
	head  int
	count int
}

func newExecutionHistory(capacity int) executionHistory {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return executionHistory{items: make([]ExecutionRecord, capacity)}
}

func (h *executionHistory) Add(record ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == 0 {
		return
	}

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first.
func (h *executionHistory) Recent(limit int) []ExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]ExecutionRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

// resolveJobName derives a diagnostic label for an unnamed job body from its
// function symbol.
func resolveJobName(body JobFunc, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if body == nil {
		return "anonymous"
	}

	v := reflect.ValueOf(body)
	if v.Kind() != reflect.Func {
		return "anonymous"
	}

	pc := v.Pointer()
	if pc == 0 {
		return "anonymous"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "anonymous"
	}

	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
