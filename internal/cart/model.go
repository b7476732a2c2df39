package cart

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCheckout  Status = "checkout"
	StatusAbandoned Status = "abandoned"
)

func (s Status) String() string {
	return string(s)
}

type Cart struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	TotalPrice      float64   `json:"total_price"`
	ShippingAddress string    `json:"shipping_address"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Item is a cart line. Price is captured from the catalog when the line is
// first created and never rewritten; Subtotal is maintained by the service
// layer and may be computed against a newer catalog price on merges.
type Item struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Subtotal  float64   `json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemDetail is an Item enriched with the product's current catalog data for
// display. The enrichment never writes back to the stored line.
type ItemDetail struct {
	Item
	ProductName   string  `json:"product_name"`
	ProductPrice  float64 `json:"product_price"`
	ProductStocks int     `json:"product_stocks"`
}

// CartDetail pairs a cart with its owner's display name.
type CartDetail struct {
	Cart      *Cart
	OwnerName string
}

// ActiveCartResult is the outcome of a get-or-create lookup. Created reports
// whether a new cart had to be made.
type ActiveCartResult struct {
	Cart      *Cart
	OwnerName string
	Created   bool
}

// UserCarts lists every cart a user has ever had, any status.
type UserCarts struct {
	OwnerName string
	Carts     []Cart
}
