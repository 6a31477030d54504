package stats_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/inventoryhub/internal/cache"
	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/geocoder89/inventoryhub/internal/repo/memory"
	"github.com/geocoder89/inventoryhub/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	stats.Source
	calls int
	err   error
}

func (c *countingSource) Stats(ctx context.Context) (item.Stats, error) {
	c.calls++
	if c.err != nil {
		return item.Stats{}, c.err
	}
	return c.Source.Stats(ctx)
}

// pausingSource holds its first Stats call after reading the store until
// release is closed.
type pausingSource struct {
	stats.Source
	loaded  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingSource) Stats(ctx context.Context) (item.Stats, error) {
	st, err := p.Source.Stats(ctx)

	first := false
	p.once.Do(func() { first = true })

	if first {
		close(p.loaded)
		<-p.release
	}

	return st, err
}

func seed(t *testing.T, repo *memory.ItemsRepo, items ...item.Item) {
	t.Helper()
	for _, it := range items {
		_, err := repo.Create(context.Background(), it)
		require.NoError(t, err)
	}
}

func TestCompute_TotalValueFixture(t *testing.T) {
	repo := memory.NewItemsRepo()
	seed(t, repo,
		item.Item{Name: "A", Category: "x", Quantity: 5, Price: 2.50},
		item.Item{Name: "B", Category: "y", Quantity: 3, Price: 10.00},
	)

	st, err := stats.NewService(repo, nil).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 42.50, st.TotalValue)
	assert.EqualValues(t, 2, st.TotalItems)
	assert.EqualValues(t, 2, st.LowStockItems)
	assert.Len(t, st.Categories, 2)
}

func TestCompute_RoundsToCents(t *testing.T) {
	repo := memory.NewItemsRepo()
	seed(t, repo,
		item.Item{Name: "A", Quantity: 3, Price: 0.1},
		item.Item{Name: "B", Quantity: 7, Price: 1.333},
	)

	st, err := stats.NewService(repo, nil).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 9.63, st.TotalValue)
}

func TestCompute_EmptyInventory(t *testing.T) {
	st, err := stats.NewService(memory.NewItemsRepo(), nil).Compute(context.Background())
	require.NoError(t, err)

	assert.Zero(t, st.TotalItems)
	assert.Zero(t, st.TotalValue)
	assert.NotNil(t, st.Categories)
}

func TestCompute_CachesUntilInvalidated(t *testing.T) {
	repo := memory.NewItemsRepo()
	seed(t, repo, item.Item{Name: "A", Category: "x", Quantity: 5, Price: 2.50})

	src := &countingSource{Source: repo}
	svc := stats.NewService(src, cache.New(time.Minute))
	ctx := context.Background()

	first, err := svc.Compute(ctx)
	require.NoError(t, err)
	second, err := svc.Compute(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)

	seed(t, repo, item.Item{Name: "B", Category: "y", Quantity: 3, Price: 10})
	svc.Invalidate(ctx)

	third, err := svc.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 42.5, third.TotalValue)
}

func TestCompute_InvalidateDuringLoadIsNotLost(t *testing.T) {
	repo := memory.NewItemsRepo()
	seed(t, repo, item.Item{Name: "A", Category: "x", Quantity: 5, Price: 2.50})

	src := &pausingSource{Source: repo, loaded: make(chan struct{}), release: make(chan struct{})}
	svc := stats.NewService(src, cache.New(time.Minute))
	ctx := context.Background()

	inFlight := make(chan item.Stats, 1)
	go func() {
		st, err := svc.Compute(ctx)
		assert.NoError(t, err)
		inFlight <- st
	}()

	<-src.loaded
	seed(t, repo, item.Item{Name: "B", Category: "y", Quantity: 3, Price: 10})
	svc.Invalidate(ctx)
	close(src.release)

	// the racing read may report the old figures, but must not keep them alive
	assert.EqualValues(t, 1, (<-inFlight).TotalItems)

	st, err := svc.Compute(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.TotalItems)
	assert.Equal(t, 42.5, st.TotalValue)
}

func TestCompute_RedisCacheSharedAcrossServices(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := cache.NewRedisClient(cache.RedisConfig{Addr: mr.Addr()})
	defer rdb.Close()

	repo := memory.NewItemsRepo()
	seed(t, repo, item.Item{Name: "A", Category: "x", Quantity: 5, Price: 2.50})

	ctx := context.Background()
	srcA := &countingSource{Source: repo}
	srcB := &countingSource{Source: repo}
	a := stats.NewService(srcA, cache.NewRedis(rdb, time.Minute, "test:"))
	b := stats.NewService(srcB, cache.NewRedis(rdb, time.Minute, "test:"))

	_, err := a.Compute(ctx)
	require.NoError(t, err)
	_, err = b.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, srcB.calls, "second instance should hit the shared entry")

	seed(t, repo, item.Item{Name: "B", Category: "y", Quantity: 3, Price: 10})
	a.Invalidate(ctx)

	st, err := b.Compute(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.TotalItems)
	assert.Equal(t, 1, srcB.calls)
}

func TestCompute_UnreadableVersionBypassesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := cache.NewRedisClient(cache.RedisConfig{Addr: mr.Addr()})
	defer rdb.Close()

	repo := memory.NewItemsRepo()
	seed(t, repo, item.Item{Name: "A", Quantity: 5, Price: 2.50})

	src := &countingSource{Source: repo}
	svc := stats.NewService(src, cache.NewRedis(rdb, time.Minute, ""))
	mr.Close()

	for i := 0; i < 2; i++ {
		st, err := svc.Compute(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, st.TotalItems)
	}
	assert.Equal(t, 2, src.calls)
}

func TestCompute_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{Source: memory.NewItemsRepo(), err: errors.New("aggregate failed")}
	svc := stats.NewService(src, cache.New(time.Minute))

	_, err := svc.Compute(context.Background())
	require.Error(t, err)

	src.err = nil
	_, err = svc.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestLowStock(t *testing.T) {
	repo := memory.NewItemsRepo()
	seed(t, repo,
		item.Item{Name: "A", Quantity: 2},
		item.Item{Name: "B", Quantity: 10},
		item.Item{Name: "C", Quantity: 11},
	)

	svc := stats.NewService(repo, nil)

	low, err := svc.LowStock(context.Background(), item.LowStockThreshold)
	require.NoError(t, err)
	assert.Len(t, low, 2)

	low, err = svc.LowStock(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "A", low[0].Name)
}
