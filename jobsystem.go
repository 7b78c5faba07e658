package jobs

import "github.com/jayrulez/Sedulous-Serenity/core"

// New creates a stopped JobSystem with the given configuration. Call
// Startup before submitting and drive Update from the owning frame loop.
func New(cfg Config) *JobSystem {
	return core.NewJobSystem(cfg)
}

// DefaultConfig returns a configuration with auto-detected workers and
// default handlers.
func DefaultConfig() Config {
	return core.DefaultConfig()
}

// ResultAs resolves a job's result as T without blocking. ok is false until
// the job has Succeeded or when the result is not a T.
func ResultAs[T any](sys *JobSystem, h JobHandle) (T, bool) {
	return core.ResultAs[T](sys, h)
}
