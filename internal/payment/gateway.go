package payment

import (
	"context"
	"errors"
)

// ErrGateway marks any failure of the external payment provider, including
// timeouts. Callers treat it as "nothing was charged, nothing was persisted".
var ErrGateway = errors.New("payment gateway error")

type Buyer struct {
	Name  string
	Email string
}

type CreatePaymentRequest struct {
	OrderRef string
	Amount   float64
	Buyer    Buyer
}

// Payment is the provider's handle for a created payment intent: an
// identifier and the URL the buyer is redirected to.
type Payment struct {
	PaymentID   string
	RedirectURL string
}

type Gateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
}
