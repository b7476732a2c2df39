package transaction

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Transaction snapshots a cart at checkout time. TotalPrice is immutable once
// written; it is never recomputed from the catalog.
type Transaction struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	CartID     uuid.UUID `json:"cart_id"`
	TotalPrice float64   `json:"total_price"`
	Status     Status    `json:"status"`
	PaymentID  string    `json:"payment_id"`
	PaymentURL string    `json:"payment_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Item is an immutable per-line snapshot taken at checkout; later catalog or
// cart changes never touch it.
type Item struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ProductID     uuid.UUID `json:"product_id"`
	Quantity      int       `json:"quantity"`
	Price         float64   `json:"price"`
	CreatedAt     time.Time `json:"created_at"`
}

// Detail is the read-side projection of a transaction for display.
type Detail struct {
	TransactionID uuid.UUID    `json:"transaction_id"`
	Subtotal      float64      `json:"subtotal"`
	User          BuyerInfo    `json:"user"`
	Items         []LineDetail `json:"transaction_items"`
	PaymentURL    string       `json:"payment_url"`
}

type BuyerInfo struct {
	Name            string  `json:"name"`
	ShippingAddress *string `json:"shipping_address"`
}

type LineDetail struct {
	Product    *string `json:"product"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	TotalPrice float64 `json:"total_price"`
}
