package tasks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"route2lnm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository is a simple mock implementation of database.RecentRouteRepository
type mockRepository struct {
	mu      sync.Mutex
	routes  []*models.RecentRoute
	batches int
	errors  []error
}

func (m *mockRepository) InsertBatch(entries []*models.RecentRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes = append(m.routes, entries...)
	m.batches++
	if len(m.errors) > 0 {
		err := m.errors[0]
		m.errors = m.errors[1:]
		return err
	}
	return nil
}

func (m *mockRepository) Remove(ids []string) (int64, error) {
	return 0, nil
}

func (m *mockRepository) List() ([]models.RecentRoute, error) {
	return nil, nil
}

func (m *mockRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.routes)
}

func testRoute(i int) models.RecentRoute {
	return models.RecentRoute{
		ID:        fmt.Sprintf("id-%d", i),
		Route:     fmt.Sprintf("KJFK KBOS %d", i),
		CreatedAt: time.Now(),
	}
}

func TestNewRecentRouteRecorder(t *testing.T) {
	repo := &mockRepository{}

	recorder := NewRecentRouteRecorder(repo)

	require.NotNil(t, recorder)
	assert.Equal(t, 10, recorder.batchSize)
	assert.Equal(t, 1*time.Second, recorder.flushInterval)
	assert.Equal(t, 16, cap(recorder.routeChan))
}

func TestRecentRouteRecorder_BatchFlush(t *testing.T) {
	repo := &mockRepository{}
	batchSize := 3

	recorder := NewRecentRouteRecorderWithConfig(repo, 10, batchSize, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = recorder.Start(ctx)
	}()

	for i := 0; i < batchSize; i++ {
		recorder.RouteCompleted(testRoute(i))
	}

	assert.Eventually(t, func() bool {
		return repo.count() == batchSize
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecentRouteRecorder_TimeoutFlush(t *testing.T) {
	repo := &mockRepository{}
	flushInterval := 50 * time.Millisecond

	recorder := NewRecentRouteRecorderWithConfig(repo, 10, 10, flushInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = recorder.Start(ctx)
	}()

	// A single route is flushed by the ticker without further traffic
	recorder.RouteCompleted(testRoute(1))

	assert.Eventually(t, func() bool {
		return repo.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecentRouteRecorder_ContextCancellation(t *testing.T) {
	repo := &mockRepository{}

	recorder := NewRecentRouteRecorderWithConfig(repo, 10, 10, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = recorder.Start(ctx)
		close(done)
	}()

	recorder.RouteCompleted(testRoute(1))
	recorder.RouteCompleted(testRoute(2))

	cancel()

	select {
	case <-done:
		// Queued routes are flushed before exit
		assert.Equal(t, 2, repo.count())
	case <-time.After(2 * time.Second):
		t.Fatal("Recorder did not exit after context cancellation")
	}
}

func TestRecentRouteRecorder_Close(t *testing.T) {
	repo := &mockRepository{}

	recorder := NewRecentRouteRecorderWithConfig(repo, 10, 10, 1*time.Hour)

	recorder.RouteCompleted(testRoute(1))

	done := make(chan error, 1)
	go func() {
		done <- recorder.Start(context.Background())
	}()

	recorder.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, 1, repo.count())
	case <-time.After(2 * time.Second):
		t.Fatal("Recorder did not exit after Close")
	}

	// Routes after Close are dropped without panicking
	recorder.RouteCompleted(testRoute(2))
	recorder.Close()
	assert.Equal(t, 1, repo.count())
}

func TestRecentRouteRecorder_QueueFull(t *testing.T) {
	repo := &mockRepository{}

	recorder := NewRecentRouteRecorderWithConfig(repo, 2, 10, 1*time.Hour)

	// Not started: the third route does not fit and is dropped
	for i := 0; i < 3; i++ {
		recorder.RouteCompleted(testRoute(i))
	}
	recorder.Close()

	require.NoError(t, recorder.Start(context.Background()))
	assert.Equal(t, 2, repo.count())
}

func TestRecentRouteRecorder_InsertError(t *testing.T) {
	repo := &mockRepository{
		errors: []error{assert.AnError},
	}

	recorder := NewRecentRouteRecorderWithConfig(repo, 10, 1, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = recorder.Start(ctx)
	}()

	recorder.RouteCompleted(testRoute(1))
	recorder.RouteCompleted(testRoute(2))

	// Recorder keeps running after a failed batch
	assert.Eventually(t, func() bool {
		return repo.count() == 2
	}, 2*time.Second, 10*time.Millisecond)
}
