package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tokobelanja/checkout-service/internal/catalog"
	"github.com/tokobelanja/checkout-service/internal/user"
)

var (
	ErrInvalidStatus           = errors.New("invalid transaction status")
	ErrInvalidStatusTransition = errors.New("invalid transaction status transition")
)

// strictTransitions is the documented state machine used only when strict
// mode is enabled; the default mode accepts any valid status value.
var strictTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusPaid:     true,
		StatusCanceled: true,
	},
	StatusPaid: {
		StatusShipped:  true,
		StatusCanceled: true,
	},
	StatusShipped: {
		StatusCompleted: true,
	},
	StatusCompleted: {},
	StatusCanceled:  {},
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetShippingAddressByUserID(ctx context.Context, userID uuid.UUID) (*user.ShippingAddress, error)
}

type ProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type Service interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
}

type service struct {
	repo     Repository
	users    UserStore
	products ProductStore
	strict   bool
}

type Option func(*service)

// WithStrictTransitions enables the pending→paid→shipped→completed state
// machine (plus canceled from pending or paid) instead of accepting any
// status value on update.
func WithStrictTransitions() Option {
	return func(s *service) {
		s.strict = true
	}
}

func NewService(repo Repository, users UserStore, products ProductStore, opts ...Option) Service {
	s := &service{
		repo:     repo,
		users:    users,
		products: products,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateStatus overwrites the transaction status. In the default (loose) mode
// any value of the status enum is accepted, regardless of the current state.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error {
	if !newStatus.Valid() {
		return ErrInvalidStatus
	}

	if s.strict {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == newStatus {
			return nil
		}
		if !strictTransitions[current.Status][newStatus] {
			log.Warn().
				Stringer("transaction_id", id).
				Str("current_status", current.Status.String()).
				Str("new_status", newStatus.String()).
				Msg("service: transaction status transition rejected")
			return ErrInvalidStatusTransition
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return err
	}

	log.Info().Stringer("transaction_id", id).Str("new_status", newStatus.String()).Msg("service: transaction status updated")
	return nil
}

// GetDetail builds the display projection of a transaction. A transaction
// with no snapshot items is incomplete (an interrupted checkout) and is
// reported as ErrTransactionItemNotFound rather than returned as valid.
func (s *service) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	buyer, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve transaction user: %w", err)
	}

	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		log.Warn().Stringer("transaction_id", id).Msg("service: transaction has no items, treating as incomplete")
		return nil, ErrTransactionItemNotFound
	}

	lines := make([]LineDetail, 0, len(items))
	for _, item := range items {
		line := LineDetail{
			Quantity:   item.Quantity,
			Price:      item.Price,
			TotalPrice: item.Price * float64(item.Quantity),
		}
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil && !errors.Is(err, catalog.ErrProductNotFound) {
			return nil, fmt.Errorf("service: failed to resolve product for transaction item %s: %w", item.ID, err)
		}
		if product != nil {
			name := product.Name
			line.Product = &name
		}
		lines = append(lines, line)
	}

	detail := &Detail{
		TransactionID: t.ID,
		Subtotal:      t.TotalPrice,
		User:          BuyerInfo{Name: buyer.FullName},
		Items:         lines,
		PaymentURL:    t.PaymentURL,
	}

	addr, err := s.users.GetShippingAddressByUserID(ctx, t.UserID)
	if err != nil {
		log.Warn().Err(err).Stringer("user_id", t.UserID).Msg("service: failed to resolve shipping address")
	}
	if addr != nil {
		detail.User.ShippingAddress = &addr.Address
	}

	return detail, nil
}
