package cart

import (
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, productID string, price string, maxQuantity int) CartItem {
	return CartItem{
		ID:          id,
		ProductID:   productID,
		Name:        "Item " + id,
		Price:       decimal.RequireFromString(price),
		Image:       "📦",
		MaxQuantity: maxQuantity,
	}
}

func TestStore_AddItemClampsToMaxQuantity(t *testing.T) {
	store := NewStore(nil)

	for i := 0; i < 12; i++ {
		store.AddItem(item("x", "x", "5.00", 10), 1)
	}

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
	assert.Equal(t, 10, store.TotalItems())
}

func TestStore_AddItemNewLineIsClamped(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("x", "x", "5.00", 3), 7)

	assert.Equal(t, 3, store.Items()[0].Quantity)
}

func TestStore_AddItemNonPositiveQuantityCountsAsOne(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("x", "x", "5.00", 10), 0)
	store.AddItem(item("x", "x", "5.00", 10), -4)

	assert.Equal(t, 2, store.Items()[0].Quantity)
}

func TestStore_MergesOnProductAndVariant(t *testing.T) {
	store := NewStore(nil)

	first := item("line-1", "p1", "10.00", 10)
	first.VariantID = "red"
	second := item("line-2", "p1", "10.00", 10)
	second.VariantID = "red"
	other := item("line-3", "p1", "10.00", 10)
	other.VariantID = "blue"

	store.AddItem(first, 2)
	store.AddItem(second, 3)
	store.AddItem(other, 1)

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "line-1", items[0].ID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "line-3", items[1].ID)
}

func TestStore_DefaultsMissingIDAndMaxQuantity(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(CartItem{ProductID: "p1", VariantID: "v1", Price: decimal.NewFromInt(1)}, 50)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1:v1", items[0].ID)
	assert.Equal(t, DefaultMaxQuantity, items[0].MaxQuantity)
	assert.Equal(t, DefaultMaxQuantity, items[0].Quantity)
}

func TestStore_MergeRefreshesCatalogData(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("x", "x", "5.00", 10), 8)
	store.AddItem(item("x", "x", "4.50", 5), 1)

	items := store.Items()
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "4.50", items[0].Price.StringFixed(2))
}

func TestStore_UpdateQuantity(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("x", "x", "5.00", 10), 1)

	store.UpdateQuantity("x", 25)
	assert.Equal(t, 10, store.Items()[0].Quantity)

	store.UpdateQuantity("x", 4)
	assert.Equal(t, 4, store.Items()[0].Quantity)

	store.UpdateQuantity("missing", 4)
	assert.Len(t, store.Items(), 1)
}

func TestStore_UpdateQuantityZeroRemoves(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("x", "x", "5.00", 10), 3)

	store.UpdateQuantity("x", 0)
	assert.Empty(t, store.Items())

	assert.NotPanics(t, func() { store.RemoveItem("x") })
	assert.Empty(t, store.Items())
}

func TestStore_RemoveItem(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("a", "a", "1.00", 10), 1)
	store.AddItem(item("b", "b", "2.00", 10), 1)
	store.AddItem(item("c", "c", "3.00", 10), 1)

	store.RemoveItem("b")

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
}

func TestStore_Totals(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("x", "x", "19.99", 10), 2)

	assert.Equal(t, 2, store.TotalItems())
	assert.Equal(t, "39.98", store.TotalPrice().StringFixed(2))

	store.AddItem(item("y", "y", "0.10", 10), 3)
	snap := store.Snapshot()
	assert.Equal(t, 5, snap.TotalItems)
	assert.Equal(t, "40.28", snap.TotalPrice.StringFixed(2))

	store.Clear()
	assert.Equal(t, 0, store.TotalItems())
	assert.True(t, store.TotalPrice().IsZero())
	assert.True(t, store.Snapshot().IsEmpty())
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(item("x", "x", "1.00", 10), 1)

	snap := store.Snapshot()
	store.UpdateQuantity("x", 5)

	assert.Equal(t, 1, snap.Items[0].Quantity)
	assert.Equal(t, 1, snap.TotalItems)
}

func TestNewStore_RepairsPersistedLines(t *testing.T) {
	stored := []CartItem{
		{ID: "a", ProductID: "a", Price: decimal.NewFromInt(1), Quantity: 0, MaxQuantity: 10},
		{ID: "b", ProductID: "b", Price: decimal.NewFromInt(1), Quantity: 40, MaxQuantity: 10},
		{ID: "b", ProductID: "b", Price: decimal.NewFromInt(1), Quantity: 2, MaxQuantity: 10},
	}

	items := NewStore(stored).Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, 10, items[0].Quantity)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	store := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddItem(item("x", "x", "1.00", 10), 1)
			_ = store.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, store.TotalItems())
}

// Operations are decoded from plain integers so gopter can shrink them.
func applyOp(store *Store, op int) {
	products := []string{"p1", "p2", "p3", "p4"}
	productID := products[(op/3)%len(products)]
	quantity := (op/12)%15 - 2

	switch op % 3 {
	case 0:
		it := item(productID, productID, "2.50", 3+(op/12)%8)
		store.AddItem(it, quantity)
	case 1:
		store.UpdateQuantity(productID, quantity)
	case 2:
		store.RemoveItem(productID)
	}
}

func TestStore_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("quantities stay within [1, maxQuantity]", prop.ForAll(
		func(ops []int) bool {
			store := NewStore(nil)
			for _, op := range ops {
				applyOp(store, op)
			}
			for _, it := range store.Items() {
				if it.Quantity < 1 || it.Quantity > it.MaxQuantity {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.Property("no two lines share an identity", prop.ForAll(
		func(ops []int) bool {
			store := NewStore(nil)
			for _, op := range ops {
				applyOp(store, op)
			}
			items := store.Items()
			for i := range items {
				for j := i + 1; j < len(items); j++ {
					if items[i].sameLine(items[j]) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.Property("totals are recomputed from lines", prop.ForAll(
		func(ops []int) bool {
			store := NewStore(nil)
			for _, op := range ops {
				applyOp(store, op)
			}
			expected := decimal.Zero
			count := 0
			for _, it := range store.Items() {
				expected = expected.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
				count += it.Quantity
			}
			return store.TotalPrice().Equal(expected) && store.TotalItems() == count
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.TestingRun(t)
}
