package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/logger"
)

type fakeController struct {
	name     string
	interval time.Duration
	runs     atomic.Int64
	first    chan struct{}
}

func newFakeController(name string, interval time.Duration) *fakeController {
	return &fakeController{name: name, interval: interval, first: make(chan struct{})}
}

func (f *fakeController) Name() string            { return f.name }
func (f *fakeController) Interval() time.Duration { return f.interval }

func (f *fakeController) Reconcile(context.Context) (int, error) {
	if f.runs.Add(1) == 1 {
		close(f.first)
	}
	return 1, nil
}

func TestManager_RunsControllerImmediately(t *testing.T) {
	m := NewManager(nil, logger.NewNop())
	c := newFakeController("fake", time.Hour)
	m.Register(c)

	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop() }()

	select {
	case <-c.first:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not reconcile at startup")
	}
	assert.Equal(t, int64(1), c.runs.Load())
}

func TestManager_StopWaitsForControllers(t *testing.T) {
	m := NewManager(nil, logger.NewNop())
	c := newFakeController("fake", 10*time.Millisecond)
	m.Register(c)

	require.NoError(t, m.Start(context.Background()))
	<-c.first
	require.NoError(t, m.Stop())

	after := c.runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, c.runs.Load())
}

func TestManager_StartTwiceFails(t *testing.T) {
	m := NewManager(nil, logger.NewNop())
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop() }()

	assert.Error(t, m.Start(context.Background()))
}

func TestManager_RegisterWhileRunningPanics(t *testing.T) {
	m := NewManager(nil, logger.NewNop())
	require.NoError(t, m.Start(context.Background()))
	defer func() { _ = m.Stop() }()

	assert.Panics(t, func() {
		m.Register(newFakeController("late", time.Hour))
	})
}
