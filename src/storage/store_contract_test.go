package storage

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-orders/src/config"
	"trade-orders/src/interfaces"
	"trade-orders/src/models"
)

func testConfig() *models.MConfig {
	return config.Default().MConfig
}

func aaplBuy() models.MOrderInput {
	return models.MOrderInput{Symbol: "AAPL", Price: 150.50, Quantity: 100, OrderType: models.OrderTypeBuy}
}

// runOrderStoreContract exercises the behaviour every IOrderStore backend must share.
// store must be initialized and empty.
func runOrderStoreContract(t *testing.T, store interfaces.IOrderStore) {
	ctx := context.Background()

	t.Run("insert assigns sequential ids", func(t *testing.T) {
		first, err := store.Insert(ctx, aaplBuy())
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, "AAPL", first.Symbol)
		assert.Equal(t, 150.50, first.Price)
		assert.Equal(t, int64(100), first.Quantity)
		assert.Equal(t, models.OrderTypeBuy, first.OrderType)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Nil(t, first.UpdatedAt)

		second, err := store.Insert(ctx, models.MOrderInput{Symbol: "BRK.A", Price: 500000, Quantity: 1, OrderType: models.OrderTypeSell})
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.ID)
	})

	t.Run("get returns stored order", func(t *testing.T) {
		got, err := store.GetByID(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "BRK.A", got.Symbol)
		assert.Equal(t, 500000.0, got.Price)
		assert.Equal(t, models.OrderTypeSell, got.OrderType)
		assert.Nil(t, got.UpdatedAt)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := store.GetByID(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list paginates by id", func(t *testing.T) {
		for i := 3; i <= 5; i++ {
			_, err := store.Insert(ctx, models.MOrderInput{Symbol: fmt.Sprintf("SYM%d", i), Price: float64(i), Quantity: int64(i), OrderType: models.OrderTypeBuy})
			require.NoError(t, err)
		}

		all, err := store.List(ctx, 0, 100)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, o := range all {
			assert.Equal(t, int64(i+1), o.ID)
		}

		page, err := store.List(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, int64(2), page[0].ID)
		assert.Equal(t, int64(3), page[1].ID)

		empty, err := store.List(ctx, 10, 5)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		none, err := store.List(ctx, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, none)

		tail, err := store.List(ctx, 2, math.MaxInt)
		require.NoError(t, err)
		require.Len(t, tail, 3)
		assert.Equal(t, int64(3), tail[0].ID)
		assert.Equal(t, int64(5), tail[2].ID)
	})

	t.Run("update overwrites fields", func(t *testing.T) {
		before, err := store.GetByID(ctx, 1)
		require.NoError(t, err)

		updated, err := store.UpdateByID(ctx, 1, models.MOrderInput{Symbol: "MSFT", Price: 300, Quantity: 5, OrderType: models.OrderTypeSell})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, int64(1), updated.ID)
		assert.Equal(t, "MSFT", updated.Symbol)
		assert.Equal(t, 300.0, updated.Price)
		assert.Equal(t, int64(5), updated.Quantity)
		assert.Equal(t, models.OrderTypeSell, updated.OrderType)
		require.NotNil(t, updated.UpdatedAt)
		assert.WithinDuration(t, before.CreatedAt, updated.CreatedAt, time.Millisecond)

		got, err := store.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "MSFT", got.Symbol)
		require.NotNil(t, got.UpdatedAt)
	})

	t.Run("update missing returns nil", func(t *testing.T) {
		updated, err := store.UpdateByID(ctx, 999, aaplBuy())
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("concurrent inserts get distinct ids", func(t *testing.T) {
		const workers = 20
		ids := make(chan int64, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				o, err := store.Insert(ctx, aaplBuy())
				if assert.NoError(t, err) {
					ids <- o.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[int64]bool{}
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, workers)
	})
}
