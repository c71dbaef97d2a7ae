package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessedFirstTime(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	marked, err := store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, marked)

	processed, err := store.IsProcessed(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestMarkProcessedDuplicate(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	marked, err := store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	require.True(t, marked)

	marked, err = store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, marked, "second mark of the same key must report already processed")
}

func TestMarkProcessedExpiredEntryIsReusable(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	marked, err := store.MarkProcessed(ctx, "key-1", -time.Second)
	require.NoError(t, err)
	require.True(t, marked)

	processed, err := store.IsProcessed(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, processed)

	marked, err = store.MarkProcessed(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, marked)
}

func TestMarkProcessedConcurrent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marked, err := store.MarkProcessed(ctx, "contested", time.Minute)
			require.NoError(t, err)
			results <- marked
		}()
	}
	wg.Wait()
	close(results)

	var winners int
	for marked := range results {
		if marked {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one goroutine may win the mark")
}

func TestCloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
