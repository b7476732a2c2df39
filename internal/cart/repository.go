package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartNotActive    = errors.New("cart is not active")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidCartStatus = errors.New("invalid cart status")

	// ErrActiveCartExists means a concurrent insert won the one-active-cart
	// race; callers should re-read the winner.
	ErrActiveCartExists = errors.New("active cart already exists")

	// ErrDuplicateItem means a concurrent insert won the one-line-per-product
	// race for the same (cart, product) pair.
	ErrDuplicateItem = errors.New("cart item already exists")
)

type Repository interface {
	CreateCart(ctx context.Context, c *Cart) error
	GetCartByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	GetActiveCartByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	ListCarts(ctx context.Context) ([]Cart, error)
	ListCartsByUser(ctx context.Context, userID uuid.UUID) ([]Cart, error)
	TransitionCart(ctx context.Context, id uuid.UUID, to Status, shippingAddress *string) (*Cart, error)
	UpdateCartTotal(ctx context.Context, id uuid.UUID, total float64) error
	DeleteCart(ctx context.Context, id uuid.UUID) error

	CreateItem(ctx context.Context, item *Item) error
	GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error)
	GetItem(ctx context.Context, cartID, productID uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, quantity int, subtotal float64) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateCart(ctx context.Context, c *Cart) error {
	query := `
		INSERT INTO carts (id, user_id, total_price, shipping_address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.TotalPrice,
		c.ShippingAddress,
		string(c.Status),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrActiveCartExists
		}
		return fmt.Errorf("repository: failed to insert cart: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetCartByID(ctx context.Context, id uuid.UUID) (*Cart, error) {
	query := `
		SELECT id, user_id, total_price, shipping_address, status, created_at, updated_at
		FROM carts
		WHERE id = $1
	`

	c, err := scanCart(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart by id %s: %w", id, err)
	}

	return c, nil
}

func (r *postgresRepository) GetActiveCartByUser(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	query := `
		SELECT id, user_id, total_price, shipping_address, status, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND status = 'active'
	`

	c, err := scanCart(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select active cart for user %s: %w", userID, err)
	}

	return c, nil
}

func (r *postgresRepository) ListCarts(ctx context.Context) ([]Cart, error) {
	query := `
		SELECT id, user_id, total_price, shipping_address, status, created_at, updated_at
		FROM carts
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query carts: %w", err)
	}
	defer rows.Close()

	return collectCarts(rows)
}

func (r *postgresRepository) ListCartsByUser(ctx context.Context, userID uuid.UUID) ([]Cart, error) {
	query := `
		SELECT id, user_id, total_price, shipping_address, status, created_at, updated_at
		FROM carts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query carts for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectCarts(rows)
}

// TransitionCart flips a cart out of the active state. The WHERE clause makes
// the write conditional: a cart that already left the active state is not
// touched, and the caller learns which of the two reasons applied.
func (r *postgresRepository) TransitionCart(ctx context.Context, id uuid.UUID, to Status, shippingAddress *string) (*Cart, error) {
	query := `
		UPDATE carts
		SET status = $1, shipping_address = COALESCE($2, shipping_address), updated_at = $3
		WHERE id = $4 AND status = 'active'
		RETURNING id, user_id, total_price, shipping_address, status, created_at, updated_at
	`

	c, err := scanCart(r.db.QueryRow(ctx, query, string(to), shippingAddress, time.Now().UTC(), id))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to transition cart %s to %s: %w", id, to, err)
	}

	// Nothing updated: distinguish missing cart from non-active cart.
	if _, getErr := r.GetCartByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrCartNotActive
}

func (r *postgresRepository) UpdateCartTotal(ctx context.Context, id uuid.UUID, total float64) error {
	query := `
		UPDATE carts
		SET total_price = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := r.db.Exec(ctx, query, total, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update total for cart %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteCart(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (r *postgresRepository) CreateItem(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price, subtotal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.Quantity,
		item.Price,
		item.Subtotal,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateItem
		}
		return fmt.Errorf("repository: failed to insert cart item: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, price, subtotal, created_at, updated_at
		FROM cart_items
		WHERE id = $1
	`

	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item by id %s: %w", id, err)
	}

	return item, nil
}

func (r *postgresRepository) GetItem(ctx context.Context, cartID, productID uuid.UUID) (*Item, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, price, subtotal, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`

	item, err := scanItem(r.db.QueryRow(ctx, query, cartID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item for cart %s product %s: %w", cartID, productID, err)
	}

	return item, nil
}

func (r *postgresRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, price, subtotal, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for cart %s: %w", cartID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.Subtotal,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for cart %s: %w", cartID, err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for cart %s: %w", cartID, err)
	}

	return items, nil
}

func (r *postgresRepository) UpdateItem(ctx context.Context, id uuid.UUID, quantity int, subtotal float64) error {
	query := `
		UPDATE cart_items
		SET quantity = $1, subtotal = $2, updated_at = $3
		WHERE id = $4
	`

	cmdTag, err := r.db.Exec(ctx, query, quantity, subtotal, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func scanCart(row pgx.Row) (*Cart, error) {
	var c Cart
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.TotalPrice,
		&c.ShippingAddress,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
		&item.Subtotal,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectCarts(rows pgx.Rows) ([]Cart, error) {
	carts := make([]Cart, 0)
	for rows.Next() {
		var c Cart
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.TotalPrice,
			&c.ShippingAddress,
			&c.Status,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart: %w", err)
		}
		carts = append(carts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating carts: %w", err)
	}

	return carts, nil
}
