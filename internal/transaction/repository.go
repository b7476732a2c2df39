package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTransactionItemNotFound = errors.New("transaction items not found")
)

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	CreateItems(ctx context.Context, items []Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListItems(ctx context.Context, transactionID uuid.UUID) ([]Item, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, cart_id, total_price, status, payment_id, payment_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.CartID,
		t.TotalPrice,
		string(t.Status),
		t.PaymentID,
		t.PaymentURL,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert transaction: %w", err)
	}

	return nil
}

// CreateItems persists the checkout snapshot lines one record at a time.
// There is deliberately no surrounding database transaction: the store is
// treated as per-record atomic, matching the rest of the checkout saga.
func (r *postgresRepository) CreateItems(ctx context.Context, items []Item) error {
	query := `
		INSERT INTO transaction_items (id, transaction_id, product_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, item := range items {
		_, err := r.db.Exec(ctx, query,
			item.ID,
			item.TransactionID,
			item.ProductID,
			item.Quantity,
			item.Price,
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert transaction item for transaction %s: %w", item.TransactionID, err)
		}
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `
		SELECT id, user_id, cart_id, total_price, status, payment_id, payment_url, created_at, updated_at
		FROM transactions
		WHERE id = $1
	`

	var t Transaction
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.UserID,
		&t.CartID,
		&t.TotalPrice,
		&t.Status,
		&t.PaymentID,
		&t.PaymentURL,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("repository: failed to select transaction by id %s: %w", id, err)
	}

	return &t, nil
}

func (r *postgresRepository) ListItems(ctx context.Context, transactionID uuid.UUID) ([]Item, error) {
	query := `
		SELECT id, transaction_id, product_id, quantity, price, created_at
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.TransactionID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan item for transaction %s: %w", transactionID, err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for transaction %s: %w", transactionID, err)
	}

	return items, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := r.db.Exec(ctx, query, string(newStatus), time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Stringer("transaction_id", id).Str("new_status", newStatus.String()).Msg("repository: failed to update transaction status")
		return fmt.Errorf("repository: failed to update transaction status %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}

	return nil
}
