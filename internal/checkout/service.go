package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tokobelanja/checkout-service/internal/cart"
	"github.com/tokobelanja/checkout-service/internal/catalog"
	"github.com/tokobelanja/checkout-service/internal/payment"
	"github.com/tokobelanja/checkout-service/internal/transaction"
	"github.com/tokobelanja/checkout-service/internal/user"
)

var ErrUnauthorized = errors.New("unauthorized")

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetShippingAddressByUserID(ctx context.Context, userID uuid.UUID) (*user.ShippingAddress, error)
}

type ProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// CartService is the slice of the cart service the orchestrator needs: the
// admission gate (active cart), the ledger, the reconciler, and the status
// flip.
type CartService interface {
	GetActiveCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Items(ctx context.Context, cartID uuid.UUID) ([]cart.Item, error)
	Reconcile(ctx context.Context, c *cart.Cart) (float64, error)
	SetStatus(ctx context.Context, id uuid.UUID, newStatus cart.Status, shippingAddress *string) (*cart.Cart, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t *transaction.Transaction) error
	CreateItems(ctx context.Context, items []transaction.Item) error
}

// Result is the enriched checkout response surfaced to the buyer.
type Result struct {
	TransactionID uuid.UUID                `json:"transaction_id"`
	Subtotal      float64                  `json:"subtotal"`
	User          transaction.BuyerInfo    `json:"user"`
	Items         []transaction.LineDetail `json:"transaction_items"`
	PaymentURL    string                   `json:"payment_url"`
}

type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*Result, error)
}

type service struct {
	users        UserStore
	carts        CartService
	products     ProductStore
	transactions TransactionStore
	gateway      payment.Gateway
}

func NewService(users UserStore, carts CartService, products ProductStore, transactions TransactionStore, gateway payment.Gateway) Service {
	return &service{
		users:        users,
		carts:        carts,
		products:     products,
		transactions: transactions,
		gateway:      gateway,
	}
}

// Checkout converts the user's active cart into a pending transaction. The
// steps span several single-record writes and one external call with no
// atomic commit; the gateway call is the point of no return. Before it, any
// failure aborts with nothing persisted. After it, failures are returned to
// the caller but already-written records stay (an interrupted checkout is
// detectable as a transaction with no items, or one whose cart is still
// active).
func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*Result, error) {
	buyer, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("checkout: failed to resolve user: %w", err)
	}

	c, err := s.carts.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.carts.Items(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, cart.ErrCartItemNotFound
	}

	total, err := s.carts.Reconcile(ctx, c)
	if err != nil {
		return nil, err
	}

	orderRef := newOrderRef()

	pay, err := s.gateway.CreatePayment(ctx, payment.CreatePaymentRequest{
		OrderRef: orderRef,
		Amount:   total,
		Buyer: payment.Buyer{
			Name:  buyer.FullName,
			Email: buyer.Email,
		},
	})
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", c.ID).Str("order_ref", orderRef).Msg("checkout: payment gateway call failed")
		return nil, fmt.Errorf("checkout: create payment: %w", err)
	}

	txID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to generate transaction id: %w", err)
	}

	now := time.Now().UTC()
	t := &transaction.Transaction{
		ID:         txID,
		UserID:     userID,
		CartID:     c.ID,
		TotalPrice: total,
		Status:     transaction.StatusPending,
		PaymentID:  pay.PaymentID,
		PaymentURL: pay.RedirectURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.transactions.Create(ctx, t); err != nil {
		log.Error().Err(err).Str("order_ref", orderRef).Msg("checkout: failed to persist transaction after gateway call")
		return nil, fmt.Errorf("checkout: persist transaction: %w", err)
	}

	if _, err := s.carts.SetStatus(ctx, c.ID, cart.StatusCheckout, nil); err != nil {
		// The transaction is already persisted; the cart staying active is
		// the known orphaned-transaction window.
		log.Error().Err(err).Stringer("transaction_id", t.ID).Stringer("cart_id", c.ID).Msg("checkout: failed to flip cart status, transaction is orphaned")
		return nil, fmt.Errorf("checkout: update cart status: %w", err)
	}

	txItems := make([]transaction.Item, 0, len(items))
	for _, item := range items {
		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("checkout: failed to generate transaction item id: %w", err)
		}
		txItems = append(txItems, transaction.Item{
			ID:            itemID,
			TransactionID: t.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Price:         item.Price,
			CreatedAt:     now,
		})
	}

	if err := s.transactions.CreateItems(ctx, txItems); err != nil {
		// Readers treat a transaction with zero items as incomplete.
		log.Error().Err(err).Stringer("transaction_id", t.ID).Msg("checkout: failed to snapshot cart items")
		return nil, fmt.Errorf("checkout: snapshot cart items: %w", err)
	}

	log.Info().
		Stringer("transaction_id", t.ID).
		Stringer("cart_id", c.ID).
		Str("order_ref", orderRef).
		Float64("total", total).
		Msg("checkout: transaction created")

	return s.buildResult(ctx, t, txItems, buyer), nil
}

// buildResult enriches the snapshot for display. Enrichment failures degrade
// to nulls; the checkout itself has already succeeded.
func (s *service) buildResult(ctx context.Context, t *transaction.Transaction, items []transaction.Item, buyer *user.User) *Result {
	lines := make([]transaction.LineDetail, 0, len(items))
	for _, item := range items {
		line := transaction.LineDetail{
			Quantity:   item.Quantity,
			Price:      item.Price,
			TotalPrice: item.Price * float64(item.Quantity),
		}
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil && !errors.Is(err, catalog.ErrProductNotFound) {
			log.Warn().Err(err).Stringer("product_id", item.ProductID).Msg("checkout: failed to enrich transaction item")
		}
		if product != nil {
			name := product.Name
			line.Product = &name
		}
		lines = append(lines, line)
	}

	info := transaction.BuyerInfo{Name: buyer.FullName}
	addr, err := s.users.GetShippingAddressByUserID(ctx, buyer.ID)
	if err != nil {
		log.Warn().Err(err).Stringer("user_id", buyer.ID).Msg("checkout: failed to resolve shipping address")
	}
	if addr != nil {
		info.ShippingAddress = &addr.Address
	}

	return &Result{
		TransactionID: t.ID,
		Subtotal:      t.TotalPrice,
		User:          info,
		Items:         lines,
		PaymentURL:    t.PaymentURL,
	}
}

// newOrderRef builds a reference unique per checkout attempt so the gateway
// never sees a collision.
func newOrderRef() string {
	suffix, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("ORDER-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("ORDER-%d-%s", time.Now().UnixMilli(), suffix.String()[:8])
}
