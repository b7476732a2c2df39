package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tokobelanja/checkout-service/internal/catalog"
	"github.com/tokobelanja/checkout-service/internal/user"
)

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type ProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type Service interface {
	GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*ActiveCartResult, error)
	GetActiveCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*CartDetail, error)
	ListCarts(ctx context.Context) ([]Cart, error)
	ListCartsByUser(ctx context.Context, userID uuid.UUID) (*UserCarts, error)
	SetStatus(ctx context.Context, id uuid.UUID, newStatus Status, shippingAddress *string) (*Cart, error)
	DeleteCart(ctx context.Context, id uuid.UUID) error

	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantityDelta int) (*ItemDetail, bool, error)
	SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*Item, error)
	RemoveItem(ctx context.Context, itemID uuid.UUID) error
	Items(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]ItemDetail, error)

	Reconcile(ctx context.Context, c *Cart) (float64, error)
}

type service struct {
	repo     Repository
	users    UserStore
	products ProductStore
}

func NewService(repo Repository, users UserStore, products ProductStore) Service {
	return &service{
		repo:     repo,
		users:    users,
		products: products,
	}
}

// GetOrCreateActiveCart returns the user's active cart, creating one only if
// none exists. Repeated calls return the same cart.
func (s *service) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*ActiveCartResult, error) {
	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve user for cart: %w", err)
	}

	existing, err := s.repo.GetActiveCartByUser(ctx, userID)
	if err == nil {
		return &ActiveCartResult{Cart: existing, OwnerName: owner.FullName, Created: false}, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, fmt.Errorf("service: failed to look up active cart: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate cart id: %w", err)
	}

	now := time.Now().UTC()
	c := &Cart{
		ID:              id,
		UserID:          userID,
		TotalPrice:      0,
		ShippingAddress: "",
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.repo.CreateCart(ctx, c)
	if errors.Is(err, ErrActiveCartExists) {
		// Lost the one-active-cart race; the winner is the cart to return.
		existing, getErr := s.repo.GetActiveCartByUser(ctx, userID)
		if getErr != nil {
			return nil, fmt.Errorf("service: failed to re-read active cart after conflict: %w", getErr)
		}
		return &ActiveCartResult{Cart: existing, OwnerName: owner.FullName, Created: false}, nil
	}
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create cart")
		return nil, fmt.Errorf("service: failed to create cart: %w", err)
	}

	log.Info().Stringer("cart_id", c.ID).Stringer("user_id", userID).Msg("service: cart created")
	return &ActiveCartResult{Cart: c, OwnerName: owner.FullName, Created: true}, nil
}

func (s *service) GetActiveCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return s.repo.GetActiveCartByUser(ctx, userID)
}

func (s *service) GetCart(ctx context.Context, id uuid.UUID) (*CartDetail, error) {
	c, err := s.repo.GetCartByID(ctx, id)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, c.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve cart owner: %w", err)
	}

	if _, err := s.Reconcile(ctx, c); err != nil {
		return nil, err
	}

	return &CartDetail{Cart: c, OwnerName: owner.FullName}, nil
}

func (s *service) ListCarts(ctx context.Context) ([]Cart, error) {
	carts, err := s.repo.ListCarts(ctx)
	if err != nil {
		return nil, err
	}

	for i := range carts {
		if _, err := s.Reconcile(ctx, &carts[i]); err != nil {
			return nil, err
		}
	}

	return carts, nil
}

func (s *service) ListCartsByUser(ctx context.Context, userID uuid.UUID) (*UserCarts, error) {
	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve user: %w", err)
	}

	carts, err := s.repo.ListCartsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range carts {
		if _, err := s.Reconcile(ctx, &carts[i]); err != nil {
			return nil, err
		}
	}

	return &UserCarts{OwnerName: owner.FullName, Carts: carts}, nil
}

// SetStatus transitions a cart out of the active state. Only active→checkout
// and active→abandoned are legal; everything else, including transitions out
// of a terminal state, is ErrInvalidCartStatus.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, newStatus Status, shippingAddress *string) (*Cart, error) {
	if newStatus != StatusCheckout && newStatus != StatusAbandoned {
		return nil, ErrInvalidCartStatus
	}

	c, err := s.repo.TransitionCart(ctx, id, newStatus, shippingAddress)
	if err != nil {
		if errors.Is(err, ErrCartNotActive) {
			log.Warn().Stringer("cart_id", id).Str("new_status", newStatus.String()).Msg("service: cart is not active, transition rejected")
			return nil, ErrInvalidCartStatus
		}
		return nil, err
	}

	log.Info().Stringer("cart_id", id).Str("new_status", newStatus.String()).Msg("service: cart status updated")
	return c, nil
}

func (s *service) DeleteCart(ctx context.Context, id uuid.UUID) error {
	// Items are deliberately left behind; see the ledger's ownership notes.
	return s.repo.DeleteCart(ctx, id)
}

// UpsertItem adds a product to an active cart. A duplicate add merges into the
// existing line: the quantity grows by the delta (a zero delta counts as one)
// and the subtotal is recomputed against the product's current catalog price,
// while the stored line price keeps its original captured value. New lines
// capture the catalog price at insertion time.
func (s *service) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantityDelta int) (*ItemDetail, bool, error) {
	c, err := s.repo.GetCartByID(ctx, cartID)
	if err != nil {
		return nil, false, err
	}
	if c.Status != StatusActive {
		return nil, false, ErrCartNotActive
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, false, catalog.ErrProductNotFound
		}
		return nil, false, fmt.Errorf("service: failed to resolve product: %w", err)
	}

	existing, err := s.repo.GetItem(ctx, cartID, productID)
	if err != nil && !errors.Is(err, ErrCartItemNotFound) {
		return nil, false, err
	}

	if existing != nil {
		item, err := s.mergeItem(ctx, existing, product, quantityDelta)
		if err != nil {
			return nil, false, err
		}
		return s.detail(item, product), false, nil
	}

	quantity := quantityDelta
	if quantity < 1 {
		quantity = 1
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, false, fmt.Errorf("service: failed to generate cart item id: %w", err)
	}

	now := time.Now().UTC()
	item := &Item{
		ID:        id,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     product.Price,
		Subtotal:  float64(quantity) * product.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repo.CreateItem(ctx, item)
	if errors.Is(err, ErrDuplicateItem) {
		// Lost the one-line-per-product race; merge into the winner.
		winner, getErr := s.repo.GetItem(ctx, cartID, productID)
		if getErr != nil {
			return nil, false, fmt.Errorf("service: failed to re-read cart item after conflict: %w", getErr)
		}
		merged, mergeErr := s.mergeItem(ctx, winner, product, quantityDelta)
		if mergeErr != nil {
			return nil, false, mergeErr
		}
		return s.detail(merged, product), false, nil
	}
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", cartID).Stringer("product_id", productID).Msg("service: failed to create cart item")
		return nil, false, fmt.Errorf("service: failed to create cart item: %w", err)
	}

	// The cached cart total is bumped on first insert only; merges rely on
	// read-time reconciliation to repair it.
	if err := s.repo.UpdateCartTotal(ctx, cartID, c.TotalPrice+item.Subtotal); err != nil {
		log.Warn().Err(err).Stringer("cart_id", cartID).Msg("service: failed to bump cart total after item insert")
	}

	return s.detail(item, product), true, nil
}

func (s *service) mergeItem(ctx context.Context, existing *Item, product *catalog.Product, quantityDelta int) (*Item, error) {
	delta := quantityDelta
	if delta == 0 {
		delta = 1
	}

	newQuantity := existing.Quantity + delta
	// Merges re-price against the current catalog price even though the
	// stored line price keeps its captured value.
	newSubtotal := float64(newQuantity) * product.Price

	if err := s.repo.UpdateItem(ctx, existing.ID, newQuantity, newSubtotal); err != nil {
		return nil, err
	}

	existing.Quantity = newQuantity
	existing.Subtotal = newSubtotal
	existing.UpdatedAt = time.Now().UTC()
	return existing, nil
}

// SetItemQuantity overwrites the quantity and recomputes the subtotal from the
// line's own stored price, not a fresh catalog lookup.
func (s *service) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*Item, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	newSubtotal := float64(quantity) * item.Price
	if err := s.repo.UpdateItem(ctx, itemID, quantity, newSubtotal); err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.Subtotal = newSubtotal
	item.UpdatedAt = time.Now().UTC()
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	return s.repo.DeleteItem(ctx, itemID)
}

func (s *service) Items(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	return s.repo.ListItems(ctx, cartID)
}

// ListItems returns the cart's lines enriched with current catalog data. A
// product that has since disappeared leaves its enrichment fields zero; the
// stored line is returned regardless.
func (s *service) ListItems(ctx context.Context, cartID uuid.UUID) ([]ItemDetail, error) {
	if _, err := s.repo.GetCartByID(ctx, cartID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}

	details := make([]ItemDetail, 0, len(items))
	for _, item := range items {
		d := ItemDetail{Item: item}
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil && !errors.Is(err, catalog.ErrProductNotFound) {
			return nil, fmt.Errorf("service: failed to enrich cart item %s: %w", item.ID, err)
		}
		if product != nil {
			d.ProductName = product.Name
			d.ProductPrice = product.Price
			d.ProductStocks = product.Stocks
		}
		details = append(details, d)
	}

	return details, nil
}

// Reconcile recomputes the cart's total from its items and persists the
// corrected value when the cached one is stale. It is the only repair
// mechanism for the cached total, so every read path goes through it.
func (s *service) Reconcile(ctx context.Context, c *Cart) (float64, error) {
	items, err := s.repo.ListItems(ctx, c.ID)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, item := range items {
		total += item.Subtotal
	}

	if total != c.TotalPrice {
		if err := s.repo.UpdateCartTotal(ctx, c.ID, total); err != nil {
			return 0, fmt.Errorf("service: failed to persist reconciled total for cart %s: %w", c.ID, err)
		}
		log.Debug().Stringer("cart_id", c.ID).Float64("old_total", c.TotalPrice).Float64("new_total", total).Msg("service: cart total reconciled")
		c.TotalPrice = total
	}

	return total, nil
}

func (s *service) detail(item *Item, product *catalog.Product) *ItemDetail {
	return &ItemDetail{
		Item:          *item,
		ProductName:   product.Name,
		ProductPrice:  product.Price,
		ProductStocks: product.Stocks,
	}
}
