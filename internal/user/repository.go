package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

// Repository resolves authenticated identity and shipping details. The core
// never mutates users; registration and credentials are handled upstream.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetShippingAddressByUserID(ctx context.Context, userID uuid.UUID) (*ShippingAddress, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, fullname, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by id %s: %w", id, err)
	}

	return &u, nil
}

// GetShippingAddressByUserID returns the user's shipping address, or nil when
// none is stored. A missing address is not an error.
func (r *postgresRepository) GetShippingAddressByUserID(ctx context.Context, userID uuid.UUID) (*ShippingAddress, error) {
	query := `
		SELECT id, user_id, recipient_name, phone_number, address, city, postal_code, COALESCE(note, ''), created_at, updated_at
		FROM shipping_addresses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var a ShippingAddress
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.RecipientName,
		&a.PhoneNumber,
		&a.Address,
		&a.City,
		&a.PostalCode,
		&a.Note,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to select shipping address for user %s: %w", userID, err)
	}

	return &a, nil
}
