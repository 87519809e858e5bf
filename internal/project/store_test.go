package project

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiharness/aiharness/internal/store"
)

func setupCache(t *testing.T) (*Cache, *Project) {
	t.Helper()
	dataDir := t.TempDir()
	registry, err := NewRegistry(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() {
		registry.Close()
	})

	project, err := EnsureDefaultProject(context.Background(), registry, dataDir)
	require.NoError(t, err)

	cache := NewCache(registry)
	t.Cleanup(func() {
		cache.Close()
	})
	return cache, project
}

func TestCache_GetOpensAllStores(t *testing.T) {
	cache, project := setupCache(t)
	ctx := context.Background()

	stores, err := cache.Get(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, stores.Todos)
	require.NotNil(t, stores.Notes)
	require.NotNil(t, stores.Builds)
	require.NotNil(t, stores.Files)

	todo, err := stores.Todos.Add(ctx, "hello", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), todo.Position)
}

func TestCache_GetReturnsSameBundle(t *testing.T) {
	cache, project := setupCache(t)
	ctx := context.Background()

	first, err := cache.Get(ctx, project.ID)
	require.NoError(t, err)
	second, err := cache.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCache_GetUnknownProject(t *testing.T) {
	cache, _ := setupCache(t)

	_, err := cache.Get(context.Background(), "no-such-project")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCache_ConcurrentGetSharesBundle(t *testing.T) {
	cache, project := setupCache(t)
	ctx := context.Background()

	const goroutines = 16
	results := make([]*Stores, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores, err := cache.Get(ctx, project.ID)
			assert.NoError(t, err)
			results[i] = stores
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestCache_DistinctProjectsAreIsolated(t *testing.T) {
	dataDir := t.TempDir()
	registry, err := NewRegistry(dataDir)
	require.NoError(t, err)
	defer registry.Close()
	ctx := context.Background()

	a, err := registry.CreateProject(ctx, "A", t.TempDir())
	require.NoError(t, err)
	b, err := registry.CreateProject(ctx, "B", t.TempDir())
	require.NoError(t, err)

	cache := NewCache(registry)
	defer cache.Close()

	storesA, err := cache.Get(ctx, a.ID)
	require.NoError(t, err)
	storesB, err := cache.Get(ctx, b.ID)
	require.NoError(t, err)

	_, err = storesA.Todos.Add(ctx, "only in A", "", nil)
	require.NoError(t, err)

	todos, err := storesB.Todos.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, todos)
}
