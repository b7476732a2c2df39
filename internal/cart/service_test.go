package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokobelanja/checkout-service/internal/cart"
	"github.com/tokobelanja/checkout-service/internal/catalog"
	"github.com/tokobelanja/checkout-service/internal/user"
)

type mockRepository struct {
	createCartFunc          func(ctx context.Context, c *cart.Cart) error
	getCartByIDFunc         func(ctx context.Context, id uuid.UUID) (*cart.Cart, error)
	getActiveCartByUserFunc func(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	listCartsFunc           func(ctx context.Context) ([]cart.Cart, error)
	listCartsByUserFunc     func(ctx context.Context, userID uuid.UUID) ([]cart.Cart, error)
	transitionCartFunc      func(ctx context.Context, id uuid.UUID, to cart.Status, shippingAddress *string) (*cart.Cart, error)
	updateCartTotalFunc     func(ctx context.Context, id uuid.UUID, total float64) error
	deleteCartFunc          func(ctx context.Context, id uuid.UUID) error
	createItemFunc          func(ctx context.Context, item *cart.Item) error
	getItemByIDFunc         func(ctx context.Context, id uuid.UUID) (*cart.Item, error)
	getItemFunc             func(ctx context.Context, cartID, productID uuid.UUID) (*cart.Item, error)
	listItemsFunc           func(ctx context.Context, cartID uuid.UUID) ([]cart.Item, error)
	updateItemFunc          func(ctx context.Context, id uuid.UUID, quantity int, subtotal float64) error
	deleteItemFunc          func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) CreateCart(ctx context.Context, c *cart.Cart) error {
	if m.createCartFunc != nil {
		return m.createCartFunc(ctx, c)
	}
	return nil
}

func (m *mockRepository) GetCartByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	if m.getCartByIDFunc != nil {
		return m.getCartByIDFunc(ctx, id)
	}
	return nil, cart.ErrCartNotFound
}

func (m *mockRepository) GetActiveCartByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	if m.getActiveCartByUserFunc != nil {
		return m.getActiveCartByUserFunc(ctx, userID)
	}
	return nil, cart.ErrCartNotFound
}

func (m *mockRepository) ListCarts(ctx context.Context) ([]cart.Cart, error) {
	if m.listCartsFunc != nil {
		return m.listCartsFunc(ctx)
	}
	return []cart.Cart{}, nil
}

func (m *mockRepository) ListCartsByUser(ctx context.Context, userID uuid.UUID) ([]cart.Cart, error) {
	if m.listCartsByUserFunc != nil {
		return m.listCartsByUserFunc(ctx, userID)
	}
	return []cart.Cart{}, nil
}

func (m *mockRepository) TransitionCart(ctx context.Context, id uuid.UUID, to cart.Status, shippingAddress *string) (*cart.Cart, error) {
	if m.transitionCartFunc != nil {
		return m.transitionCartFunc(ctx, id, to, shippingAddress)
	}
	return nil, cart.ErrCartNotFound
}

func (m *mockRepository) UpdateCartTotal(ctx context.Context, id uuid.UUID, total float64) error {
	if m.updateCartTotalFunc != nil {
		return m.updateCartTotalFunc(ctx, id, total)
	}
	return nil
}

func (m *mockRepository) DeleteCart(ctx context.Context, id uuid.UUID) error {
	if m.deleteCartFunc != nil {
		return m.deleteCartFunc(ctx, id)
	}
	return nil
}

func (m *mockRepository) CreateItem(ctx context.Context, item *cart.Item) error {
	if m.createItemFunc != nil {
		return m.createItemFunc(ctx, item)
	}
	return nil
}

func (m *mockRepository) GetItemByID(ctx context.Context, id uuid.UUID) (*cart.Item, error) {
	if m.getItemByIDFunc != nil {
		return m.getItemByIDFunc(ctx, id)
	}
	return nil, cart.ErrCartItemNotFound
}

func (m *mockRepository) GetItem(ctx context.Context, cartID, productID uuid.UUID) (*cart.Item, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, cartID, productID)
	}
	return nil, cart.ErrCartItemNotFound
}

func (m *mockRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]cart.Item, error) {
	if m.listItemsFunc != nil {
		return m.listItemsFunc(ctx, cartID)
	}
	return []cart.Item{}, nil
}

func (m *mockRepository) UpdateItem(ctx context.Context, id uuid.UUID, quantity int, subtotal float64) error {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, id, quantity, subtotal)
	}
	return nil
}

func (m *mockRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, id)
	}
	return nil
}

type mockUserStore struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*user.User, error)
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &user.User{ID: id, FullName: "Budi Santoso", Email: "budi@example.com"}, nil
}

type mockProductStore struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

func (m *mockProductStore) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, catalog.ErrProductNotFound
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestCartService_GetOrCreateActiveCart(t *testing.T) {
	userID := mustUUID(t)
	existingID := mustUUID(t)

	tests := []struct {
		name          string
		users         *mockUserStore
		repo          *mockRepository
		wantErrIs     error
		wantCreated   bool
		wantCartID    *uuid.UUID
	}{
		{
			name: "user_not_found",
			users: &mockUserStore{
				getByIDFunc: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
					return nil, user.ErrNotFound
				},
			},
			repo:      &mockRepository{},
			wantErrIs: user.ErrNotFound,
		},
		{
			name:  "returns_existing_active_cart",
			users: &mockUserStore{},
			repo: &mockRepository{
				getActiveCartByUserFunc: func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
					return &cart.Cart{ID: existingID, UserID: id, Status: cart.StatusActive}, nil
				},
			},
			wantCreated: false,
			wantCartID:  &existingID,
		},
		{
			name:        "creates_new_cart",
			users:       &mockUserStore{},
			repo:        &mockRepository{},
			wantCreated: true,
		},
		{
			name:  "lost_create_race_returns_winner",
			users: &mockUserStore{},
			repo: &mockRepository{
				createCartFunc: func(ctx context.Context, c *cart.Cart) error {
					return cart.ErrActiveCartExists
				},
				getActiveCartByUserFunc: func() func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
					calls := 0
					return func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
						calls++
						if calls == 1 {
							return nil, cart.ErrCartNotFound
						}
						return &cart.Cart{ID: existingID, UserID: id, Status: cart.StatusActive}, nil
					}
				}(),
			},
			wantCreated: false,
			wantCartID:  &existingID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := cart.NewService(tt.repo, tt.users, &mockProductStore{})
			result, err := svc.GetOrCreateActiveCart(context.Background(), userID)
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantCreated, result.Created)
			assert.Equal(t, cart.StatusActive, result.Cart.Status)
			if tt.wantCartID != nil {
				assert.Equal(t, *tt.wantCartID, result.Cart.ID)
			}
			if tt.wantCreated {
				assert.Equal(t, userID, result.Cart.UserID)
				assert.Equal(t, 0.0, result.Cart.TotalPrice)
			}
		})
	}
}

// Two consecutive lookups with no status change must return the same cart.
func TestCartService_GetOrCreateActiveCart_Idempotent(t *testing.T) {
	userID := mustUUID(t)

	var stored *cart.Cart
	repo := &mockRepository{
		createCartFunc: func(ctx context.Context, c *cart.Cart) error {
			stored = c
			return nil
		},
		getActiveCartByUserFunc: func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
			if stored == nil {
				return nil, cart.ErrCartNotFound
			}
			return stored, nil
		},
	}

	svc := cart.NewService(repo, &mockUserStore{}, &mockProductStore{})

	first, err := svc.GetOrCreateActiveCart(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.GetOrCreateActiveCart(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Cart.ID, second.Cart.ID)
}

func TestCartService_UpsertItem(t *testing.T) {
	cartID := mustUUID(t)
	productID := mustUUID(t)

	activeCart := func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
		return &cart.Cart{ID: id, Status: cart.StatusActive, TotalPrice: 0}, nil
	}
	productPriced := func(price float64) *mockProductStore {
		return &mockProductStore{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
				return &catalog.Product{ID: id, Name: "Sepatu Lari", Price: price, Stocks: 12}, nil
			},
		}
	}

	tests := []struct {
		name         string
		repo         *mockRepository
		products     *mockProductStore
		delta        int
		wantErrIs    error
		wantCreated  bool
		wantQuantity int
		wantSubtotal float64
	}{
		{
			name:      "cart_not_found",
			repo:      &mockRepository{},
			products:  productPriced(10),
			delta:     1,
			wantErrIs: cart.ErrCartNotFound,
		},
		{
			name: "cart_not_active",
			repo: &mockRepository{
				getCartByIDFunc: func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
					return &cart.Cart{ID: id, Status: cart.StatusCheckout}, nil
				},
			},
			products:  productPriced(10),
			delta:     1,
			wantErrIs: cart.ErrCartNotActive,
		},
		{
			name: "product_not_found",
			repo: &mockRepository{
				getCartByIDFunc: activeCart,
			},
			products:  &mockProductStore{},
			delta:     1,
			wantErrIs: catalog.ErrProductNotFound,
		},
		{
			name: "creates_item",
			repo: &mockRepository{
				getCartByIDFunc: activeCart,
			},
			products:     productPriced(10),
			delta:        3,
			wantCreated:  true,
			wantQuantity: 3,
			wantSubtotal: 30,
		},
		{
			name: "zero_delta_creates_single_item",
			repo: &mockRepository{
				getCartByIDFunc: activeCart,
			},
			products:     productPriced(10),
			delta:        0,
			wantCreated:  true,
			wantQuantity: 1,
			wantSubtotal: 10,
		},
		{
			name: "merge_adds_delta",
			repo: &mockRepository{
				getCartByIDFunc: activeCart,
				getItemFunc: func(ctx context.Context, cID, pID uuid.UUID) (*cart.Item, error) {
					return &cart.Item{ID: mustUUID(t), CartID: cID, ProductID: pID, Quantity: 2, Price: 10, Subtotal: 20}, nil
				},
			},
			products:     productPriced(10),
			delta:        3,
			wantCreated:  false,
			wantQuantity: 5,
			wantSubtotal: 50,
		},
		{
			name: "merge_zero_delta_adds_one",
			repo: &mockRepository{
				getCartByIDFunc: activeCart,
				getItemFunc: func(ctx context.Context, cID, pID uuid.UUID) (*cart.Item, error) {
					return &cart.Item{ID: mustUUID(t), CartID: cID, ProductID: pID, Quantity: 2, Price: 10, Subtotal: 20}, nil
				},
			},
			products:     productPriced(10),
			delta:        0,
			wantCreated:  false,
			wantQuantity: 3,
			wantSubtotal: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := cart.NewService(tt.repo, &mockUserStore{}, tt.products)
			detail, created, err := svc.UpsertItem(context.Background(), cartID, productID, tt.delta)
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantQuantity, detail.Quantity)
			assert.Equal(t, tt.wantSubtotal, detail.Subtotal)
		})
	}
}

// Adding the same product twice yields one line whose subtotal follows the
// current catalog price, while the captured line price never changes.
func TestCartService_UpsertItem_MergeRepricesAtCurrentPrice(t *testing.T) {
	cartID := mustUUID(t)
	productID := mustUUID(t)

	var stored *cart.Item
	repo := &mockRepository{
		getCartByIDFunc: func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
			return &cart.Cart{ID: id, Status: cart.StatusActive}, nil
		},
		getItemFunc: func(ctx context.Context, cID, pID uuid.UUID) (*cart.Item, error) {
			if stored == nil {
				return nil, cart.ErrCartItemNotFound
			}
			return stored, nil
		},
		createItemFunc: func(ctx context.Context, item *cart.Item) error {
			stored = item
			return nil
		},
		updateItemFunc: func(ctx context.Context, id uuid.UUID, quantity int, subtotal float64) error {
			stored.Quantity = quantity
			stored.Subtotal = subtotal
			return nil
		},
	}

	catalogPrice := 10.0
	products := &mockProductStore{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
			return &catalog.Product{ID: id, Name: "Sepatu Lari", Price: catalogPrice}, nil
		},
	}

	svc := cart.NewService(repo, &mockUserStore{}, products)

	_, created, err := svc.UpsertItem(context.Background(), cartID, productID, 2)
	require.NoError(t, err)
	assert.True(t, created)

	// Catalog price changes before the duplicate add.
	catalogPrice = 12.0

	detail, created, err := svc.UpsertItem(context.Background(), cartID, productID, 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 5, detail.Quantity)
	assert.Equal(t, 5*12.0, detail.Subtotal)
	assert.Equal(t, 10.0, detail.Price) // captured price is untouched
}

func TestCartService_SetItemQuantity(t *testing.T) {
	itemID := mustUUID(t)

	t.Run("not_found", func(t *testing.T) {
		svc := cart.NewService(&mockRepository{}, &mockUserStore{}, &mockProductStore{})
		_, err := svc.SetItemQuantity(context.Background(), itemID, 4)
		assert.True(t, errors.Is(err, cart.ErrCartItemNotFound))
	})

	t.Run("uses_stored_price_not_catalog", func(t *testing.T) {
		repo := &mockRepository{
			getItemByIDFunc: func(ctx context.Context, id uuid.UUID) (*cart.Item, error) {
				return &cart.Item{ID: id, Quantity: 2, Price: 10, Subtotal: 20}, nil
			},
		}
		products := &mockProductStore{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
				t.Fatal("catalog must not be consulted for a quantity edit")
				return nil, nil
			},
		}

		svc := cart.NewService(repo, &mockUserStore{}, products)
		item, err := svc.SetItemQuantity(context.Background(), itemID, 4)
		assert.NoError(t, err)
		assert.Equal(t, 4, item.Quantity)
		assert.Equal(t, 40.0, item.Subtotal)
	})
}

func TestCartService_Reconcile(t *testing.T) {
	cartID := mustUUID(t)

	items := []cart.Item{
		{Quantity: 2, Price: 10, Subtotal: 20},
		{Quantity: 1, Price: 5, Subtotal: 5},
	}

	t.Run("corrects_stale_total", func(t *testing.T) {
		var persisted *float64
		repo := &mockRepository{
			listItemsFunc: func(ctx context.Context, id uuid.UUID) ([]cart.Item, error) {
				return items, nil
			},
			updateCartTotalFunc: func(ctx context.Context, id uuid.UUID, total float64) error {
				persisted = &total
				return nil
			},
		}

		svc := cart.NewService(repo, &mockUserStore{}, &mockProductStore{})
		c := &cart.Cart{ID: cartID, TotalPrice: 999}
		total, err := svc.Reconcile(context.Background(), c)
		assert.NoError(t, err)
		assert.Equal(t, 25.0, total)
		assert.Equal(t, 25.0, c.TotalPrice)
		require.NotNil(t, persisted)
		assert.Equal(t, 25.0, *persisted)
	})

	t.Run("matching_total_writes_nothing", func(t *testing.T) {
		updated := false
		repo := &mockRepository{
			listItemsFunc: func(ctx context.Context, id uuid.UUID) ([]cart.Item, error) {
				return items, nil
			},
			updateCartTotalFunc: func(ctx context.Context, id uuid.UUID, total float64) error {
				updated = true
				return nil
			},
		}

		svc := cart.NewService(repo, &mockUserStore{}, &mockProductStore{})
		total, err := svc.Reconcile(context.Background(), &cart.Cart{ID: cartID, TotalPrice: 25})
		assert.NoError(t, err)
		assert.Equal(t, 25.0, total)
		assert.False(t, updated)
	})
}

func TestCartService_SetStatus(t *testing.T) {
	cartID := mustUUID(t)

	tests := []struct {
		name      string
		newStatus cart.Status
		repo      *mockRepository
		wantErrIs error
	}{
		{
			name:      "rejects_active_target",
			newStatus: cart.StatusActive,
			repo:      &mockRepository{},
			wantErrIs: cart.ErrInvalidCartStatus,
		},
		{
			name:      "cart_not_found",
			newStatus: cart.StatusCheckout,
			repo:      &mockRepository{},
			wantErrIs: cart.ErrCartNotFound,
		},
		{
			name:      "non_active_cart_rejected",
			newStatus: cart.StatusAbandoned,
			repo: &mockRepository{
				transitionCartFunc: func(ctx context.Context, id uuid.UUID, to cart.Status, addr *string) (*cart.Cart, error) {
					return nil, cart.ErrCartNotActive
				},
			},
			wantErrIs: cart.ErrInvalidCartStatus,
		},
		{
			name:      "success",
			newStatus: cart.StatusCheckout,
			repo: &mockRepository{
				transitionCartFunc: func(ctx context.Context, id uuid.UUID, to cart.Status, addr *string) (*cart.Cart, error) {
					return &cart.Cart{ID: id, Status: to}, nil
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := cart.NewService(tt.repo, &mockUserStore{}, &mockProductStore{})
			updated, err := svc.SetStatus(context.Background(), cartID, tt.newStatus, nil)
			if tt.wantErrIs != nil {
				assert.True(t, errors.Is(err, tt.wantErrIs))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.newStatus, updated.Status)
		})
	}
}

func TestCartService_ListItems_EnrichesFromCatalog(t *testing.T) {
	cartID := mustUUID(t)
	knownProduct := mustUUID(t)
	goneProduct := mustUUID(t)

	repo := &mockRepository{
		getCartByIDFunc: func(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
			return &cart.Cart{ID: id, Status: cart.StatusActive}, nil
		},
		listItemsFunc: func(ctx context.Context, id uuid.UUID) ([]cart.Item, error) {
			return []cart.Item{
				{ProductID: knownProduct, Quantity: 2, Price: 10, Subtotal: 20},
				{ProductID: goneProduct, Quantity: 1, Price: 5, Subtotal: 5},
			}, nil
		},
	}
	products := &mockProductStore{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
			if id == knownProduct {
				return &catalog.Product{ID: id, Name: "Sepatu Lari", Price: 11, Stocks: 7}, nil
			}
			return nil, catalog.ErrProductNotFound
		},
	}

	svc := cart.NewService(repo, &mockUserStore{}, products)
	details, err := svc.ListItems(context.Background(), cartID)
	require.NoError(t, err)
	require.Len(t, details, 2)

	assert.Equal(t, "Sepatu Lari", details[0].ProductName)
	assert.Equal(t, 11.0, details[0].ProductPrice)
	assert.Equal(t, 7, details[0].ProductStocks)
	// Enrichment never rewrites the stored line.
	assert.Equal(t, 10.0, details[0].Price)
	assert.Equal(t, 20.0, details[0].Subtotal)

	assert.Empty(t, details[1].ProductName)
	assert.Equal(t, 5.0, details[1].Subtotal)
}
