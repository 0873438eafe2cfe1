package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

func testProperty(key string) *models.Property {
	now := time.Now()
	return &models.Property{
		NaturalKey: key,
		Title:      "2br apartment downtown",
		Price:      185000,
		Status:     models.PropertyStatusActive,
		SourceName: "acme-realty",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestPropertyInsertAndExists(t *testing.T) {
	db := newTestDB(t)
	storage := NewPropertyStorage(db, arbor.NewLogger())
	ctx := context.Background()

	exists, err := storage.Exists(ctx, "https://example.com/p/1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, storage.Insert(ctx, testProperty("https://example.com/p/1")))

	exists, err = storage.Exists(ctx, "https://example.com/p/1")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := storage.GetByKey(ctx, "https://example.com/p/1")
	require.NoError(t, err)
	assert.Equal(t, "2br apartment downtown", got.Title)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPropertyInsert_DuplicateKey(t *testing.T) {
	db := newTestDB(t)
	storage := NewPropertyStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Insert(ctx, testProperty("k1")))

	dup := testProperty("k1")
	dup.Title = "same listing, second run"
	err := storage.Insert(ctx, dup)
	require.ErrorIs(t, err, interfaces.ErrPropertyExists)

	// The first write wins
	got, err := storage.GetByKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "2br apartment downtown", got.Title)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPropertyInsert_RequiresNaturalKey(t *testing.T) {
	db := newTestDB(t)
	storage := NewPropertyStorage(db, arbor.NewLogger())

	err := storage.Insert(context.Background(), testProperty(""))
	assert.Error(t, err)
}

func TestPropertyInsert_ConcurrentSameKey(t *testing.T) {
	db := newTestDB(t)
	storage := NewPropertyStorage(db, arbor.NewLogger())
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p := testProperty("racy-key")
			p.Title = fmt.Sprintf("writer %d", n)
			if err := storage.Insert(ctx, p); err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, interfaces.ErrPropertyExists)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
