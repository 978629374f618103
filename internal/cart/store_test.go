package cart

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	backpack = domain.Product{ID: "p1", Name: "Leather Backpack", Price: 129.99, Image: "/b.jpg", CountInStock: 5}
	tshirt   = domain.Product{ID: "p2", Name: "Cotton T-Shirt", Price: 35.00, Image: "/t.jpg", CountInStock: 10}
	mug      = domain.Product{ID: "p3", Name: "Coffee Mug", Price: 0.33, Image: "/m.jpg", CountInStock: 50}
)

func newStore(t *testing.T) (*Store, *storage.MemoryStorage) {
	t.Helper()
	s := storage.NewMemoryStorage()
	return Load(context.Background(), s, "session-1", nil), s
}

func TestAddItem_SameProductSumsQuantities(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)

	for _, q := range []int{1, 3, 2, 7} {
		require.NoError(t, st.AddItem(ctx, mug, q))
	}

	items := st.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p3", items[0].ProductID)
	assert.Equal(t, 13, items[0].Quantity)
}

func TestAddItem_MergeClampsToCurrentStock(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)

	require.NoError(t, st.AddItem(ctx, backpack, 4))
	require.NoError(t, st.AddItem(ctx, backpack, 4))
	assert.Equal(t, 5, st.Items()[0].Quantity)

	restocked := backpack
	restocked.CountInStock = 3
	require.NoError(t, st.AddItem(ctx, restocked, 1))

	items := st.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 3, items[0].AvailableStock)
}

func TestAddItem_NewProductAppends(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)

	require.NoError(t, st.AddItem(ctx, backpack, 1))
	require.NoError(t, st.AddItem(ctx, tshirt, 2))

	items := st.Items()
	require.Len(t, items, 2)
	assert.Equal(t, domain.CartLineItem{
		ProductID: "p2", Name: "Cotton T-Shirt", UnitPrice: 35.00, Image: "/t.jpg", Quantity: 2, AvailableStock: 10,
	}, items[1])
	assert.Equal(t, 3, st.Count())
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	st, _ := newStore(t)
	assert.ErrorIs(t, st.AddItem(context.Background(), backpack, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, st.AddItem(context.Background(), backpack, -2), ErrInvalidQuantity)
	assert.True(t, st.IsEmpty())
}

func TestRemoveThenAdd_StartsFresh(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)

	require.NoError(t, st.AddItem(ctx, backpack, 4))
	st.RemoveItem(ctx, "p1")
	require.NoError(t, st.AddItem(ctx, backpack, 2))

	items := st.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestRemoveItem_Absent(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	require.NoError(t, st.AddItem(ctx, backpack, 1))

	st.RemoveItem(ctx, "nope")
	assert.Len(t, st.Items(), 1)
}

func TestUpdateQuantity_ClampsToBounds(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	require.NoError(t, st.AddItem(ctx, backpack, 2))

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"within range", 3, 3},
		{"zero", 0, 1},
		{"negative", -4, 1},
		{"above stock", 99, 5},
		{"exactly stock", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, st.UpdateQuantity(ctx, "p1", tt.in))
			assert.Equal(t, tt.want, st.Items()[0].Quantity)
		})
	}
}

func TestUpdateQuantity_UnknownStockKeepsLowerBound(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	require.NoError(t, st.AddItem(ctx, domain.Product{ID: "x", Price: 1}, 1))

	assert.Equal(t, 40, st.UpdateQuantity(ctx, "x", 40))
	assert.Equal(t, 1, st.UpdateQuantity(ctx, "x", 0))
}

func TestUpdateQuantity_AbsentProduct(t *testing.T) {
	st, _ := newStore(t)
	assert.Equal(t, 0, st.UpdateQuantity(context.Background(), "nope", 3))
	assert.True(t, st.IsEmpty())
}

func TestIncrementDecrement_StayInBounds(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	require.NoError(t, st.AddItem(ctx, backpack, 4))

	assert.Equal(t, 5, st.Increment(ctx, "p1"))
	assert.Equal(t, 5, st.Increment(ctx, "p1"))

	st.UpdateQuantity(ctx, "p1", 1)
	assert.Equal(t, 1, st.Decrement(ctx, "p1"))
	assert.Equal(t, 0, st.Increment(ctx, "missing"))
}

func TestClear_KeepsAddressAndPaymentMethod(t *testing.T) {
	ctx := context.Background()
	st, s := newStore(t)
	addr := domain.ShippingAddress{FirstName: "Ada", LastName: "Lovelace", Street: "1 Main St", City: "London", PostalCode: "N1", Country: "UK"}

	require.NoError(t, st.AddItem(ctx, backpack, 1))
	st.SetShippingAddress(ctx, addr)
	st.SetPaymentMethod(ctx, domain.PaymentPayPal)
	st.Clear(ctx)

	assert.True(t, st.IsEmpty())
	got, ok := st.ShippingAddress()
	assert.True(t, ok)
	assert.Equal(t, addr, got)
	assert.Equal(t, domain.PaymentPayPal, st.PaymentMethod())

	_, err := s.Get(ctx, storage.Key(Namespace, "session-1", "cartItems"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTotals_InvariantUnderInsertionOrder(t *testing.T) {
	ctx := context.Background()
	products := []domain.Product{backpack, tshirt, mug}
	qty := map[string]int{"p1": 2, "p2": 1, "p3": 7}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {2, 0, 1}}
	var totals []float64
	for _, order := range orders {
		st, _ := newStore(t)
		for _, i := range order {
			p := products[i]
			require.NoError(t, st.AddItem(ctx, p, qty[p.ID]))
		}
		totals = append(totals, st.Total())
	}

	for _, total := range totals[1:] {
		assert.Equal(t, totals[0], total)
	}
}

func TestDerivedPrices_FollowMutations(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)

	require.NoError(t, st.AddItem(ctx, domain.Product{ID: "a", Price: 45, CountInStock: 10}, 2))
	assert.Equal(t, 90.0, st.Subtotal())
	assert.Equal(t, 10.0, st.ShippingCost())
	assert.Equal(t, 13.5, st.Tax())
	assert.Equal(t, 113.5, st.Total())

	st.UpdateQuantity(ctx, "a", 3)
	assert.Equal(t, 135.0, st.Subtotal())
	assert.Equal(t, 0.0, st.ShippingCost())
	assert.Equal(t, 20.25, st.Tax())
	assert.Equal(t, 155.25, st.Total())
}

func TestLoad_RehydratesPersistedState(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	addr := domain.ShippingAddress{FirstName: "Ada", LastName: "Lovelace", Street: "1 Main St", City: "London", PostalCode: "N1", Country: "UK"}

	first := Load(ctx, s, "sid", nil)
	require.NoError(t, first.AddItem(ctx, backpack, 2))
	require.NoError(t, first.AddItem(ctx, tshirt, 1))
	first.SetShippingAddress(ctx, addr)
	first.SetPaymentMethod(ctx, domain.PaymentPayPal)

	second := Load(ctx, s, "sid", nil)
	assert.Equal(t, first.Items(), second.Items())
	got, ok := second.ShippingAddress()
	require.True(t, ok)
	assert.Equal(t, addr, got)
	assert.Equal(t, domain.PaymentPayPal, second.PaymentMethod())

	other := Load(ctx, s, "another-sid", nil)
	assert.True(t, other.IsEmpty())
	assert.Equal(t, domain.DefaultPaymentMethod, other.PaymentMethod())
}

func TestLoad_CorruptStateFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	require.NoError(t, s.Set(ctx, storage.Key(Namespace, "sid", "cartItems"), []byte("{broken")))
	require.NoError(t, s.Set(ctx, storage.Key(Namespace, "sid", "paymentMethod"), []byte(`"Bitcoin"`)))

	st := Load(ctx, s, "sid", nil)
	assert.True(t, st.IsEmpty())
	assert.Equal(t, domain.PaymentCreditCard, st.PaymentMethod())
	_, ok := st.ShippingAddress()
	assert.False(t, ok)
}

func TestPersistFailure_KeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	fs := newFailingStorage()
	fs.failSets = true
	st := Load(ctx, fs, "sid", nil)

	require.NoError(t, st.AddItem(ctx, backpack, 1))
	assert.Len(t, st.Items(), 1)
	assert.Equal(t, 1, fs.sets)

	again := Load(ctx, fs, "sid", nil)
	assert.True(t, again.IsEmpty())
}

func TestItems_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	require.NoError(t, st.AddItem(ctx, backpack, 1))

	items := st.Items()
	items[0].Quantity = 100
	assert.Equal(t, 1, st.Items()[0].Quantity)
}
