package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedSystem(t *testing.T) *JobSystem {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Logger = NewNoOpLogger()
	cfg.ShutdownTimeout = 2 * time.Second

	sys := New(cfg)
	require.NoError(t, sys.Startup())
	t.Cleanup(func() { _ = sys.Shutdown() })
	return sys
}

func TestFacade_SubmitAndResult(t *testing.T) {
	sys := newStartedSystem(t)

	h, err := sys.Submit(func(jc *JobContext) (any, error) {
		return "done", nil
	}, nil, PriorityNormal, 0)
	require.NoError(t, err)

	result, err := sys.WaitForResult(h)
	require.NoError(t, err)
	assert.Equal(t, "done", result)

	v, ok := ResultAs[string](sys, h)
	assert.True(t, ok)
	assert.Equal(t, "done", v)

	st, err := sys.State(h)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, st)

	assert.True(t, sys.Release(h))
	_, err = sys.State(h)
	assert.ErrorIs(t, err, ErrStaleHandle)
}

func TestFacade_DependencyChain(t *testing.T) {
	sys := newStartedSystem(t)

	first, err := sys.SubmitWithOptions(func(jc *JobContext) (any, error) {
		return 1, nil
	}, SubmitOptions{Name: "first"})
	require.NoError(t, err)

	second, err := sys.SubmitWithOptions(func(jc *JobContext) (any, error) {
		v, ok := ResultAs[int](sys, first)
		assert.True(t, ok)
		return v + 1, nil
	}, SubmitOptions{
		Name:         "second",
		Priority:     PriorityHigh,
		Dependencies: []JobHandle{first},
	})
	require.NoError(t, err)

	result, err := sys.WaitForResult(second)
	require.NoError(t, err)
	assert.Equal(t, 2, result)

	sys.Release(first)
	sys.Release(second)
}

func TestFacade_GroupAndMainThread(t *testing.T) {
	sys := newStartedSystem(t)

	last, err := sys.SubmitGroup([]JobFunc{
		func(jc *JobContext) (any, error) { return nil, nil },
		func(jc *JobContext) (any, error) { return "tail", nil },
	}, PriorityNormal, 0)
	require.NoError(t, err)
	require.NoError(t, sys.Wait(last))
	sys.Release(last)

	ran := false
	h, err := sys.SubmitWithOptions(func(jc *JobContext) (any, error) {
		ran = true
		return nil, nil
	}, SubmitOptions{Flags: FlagRunOnMainThread | FlagAutoRelease})
	require.NoError(t, err)
	require.True(t, h.IsValid())

	require.NoError(t, sys.Update())
	assert.True(t, ran)
}

func TestFacade_CancelPropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	cfg.Logger = NewNoOpLogger()
	sys := New(cfg)
	require.NoError(t, sys.Startup())
	t.Cleanup(func() { _ = sys.Shutdown() })

	root, err := sys.Submit(func(jc *JobContext) (any, error) { return nil, nil },
		nil, PriorityNormal, 0)
	require.NoError(t, err)
	child, err := sys.Submit(func(jc *JobContext) (any, error) { return nil, nil },
		[]JobHandle{root}, PriorityNormal, 0)
	require.NoError(t, err)

	require.NoError(t, sys.Cancel(root))

	for _, h := range []JobHandle{root, child} {
		st, err := sys.State(h)
		require.NoError(t, err)
		assert.Equal(t, StateCanceled, st)
		sys.Release(h)
	}
}

func TestFacade_StatsSnapshot(t *testing.T) {
	sys := newStartedSystem(t)

	stats := sys.Stats()
	assert.Equal(t, "Running", stats.State)
	assert.Equal(t, 2, stats.Workers)
	assert.Zero(t, stats.LiveJobs)
}
