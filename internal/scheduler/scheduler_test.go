package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mockTask counts its runs
type mockTask struct {
	name     string
	interval time.Duration
	runs     atomic.Int32
	err      error
}

func (m *mockTask) Run(ctx context.Context) error {
	m.runs.Add(1)
	return m.err
}

func (m *mockTask) Interval() time.Duration { return m.interval }
func (m *mockTask) Name() string            { return m.name }

func TestScheduler_RunsImmediatelyAndOnInterval(t *testing.T) {
	task := &mockTask{name: "tick", interval: 20 * time.Millisecond}

	s := New(context.Background())
	s.AddTask(task)
	s.Start()

	assert.Eventually(t, func() bool {
		return task.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()

	runs := task.runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, runs, task.runs.Load(), "task ran after Stop")
}

func TestScheduler_TaskErrorKeepsRunning(t *testing.T) {
	task := &mockTask{name: "failing", interval: 10 * time.Millisecond, err: assert.AnError}

	s := New(context.Background())
	s.AddTask(task)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return task.runs.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_IgnoresTaskWithoutInterval(t *testing.T) {
	s := New(context.Background())
	s.AddTask(&mockTask{name: "disabled"})
	s.AddTask(&mockTask{name: "enabled", interval: time.Hour})

	assert.Equal(t, []string{"enabled"}, s.Tasks())
}

func TestScheduler_StopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &mockTask{name: "tick", interval: time.Hour}

	s := New(ctx)
	s.AddTask(task)
	s.Start()

	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduler did not stop after parent context cancellation")
	}
	assert.Equal(t, int32(1), task.runs.Load())
}
