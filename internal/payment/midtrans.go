package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// SnapGateway creates payment intents through Midtrans Snap. The SDK call is
// synchronous and has no context support, so it runs under a goroutine with
// the caller's deadline applied on top.
type SnapGateway struct {
	client  snap.Client
	timeout time.Duration
}

func NewSnapGateway(serverKey string, production bool, timeout time.Duration) *SnapGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	g := &SnapGateway{timeout: timeout}
	g.client.New(serverKey, env)
	return g
}

func (g *SnapGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type result struct {
		resp *snap.Response
		err  *midtrans.Error
	}
	resCh := make(chan result, 1)

	go func() {
		resp, err := g.client.CreateTransaction(&snap.Request{
			TransactionDetails: midtrans.TransactionDetails{
				OrderID:  req.OrderRef,
				GrossAmt: int64(req.Amount),
			},
			CreditCard: &snap.CreditCardDetails{
				Secure: true,
			},
			CustomerDetail: &midtrans.CustomerDetails{
				FName: req.Buyer.Name,
				Email: req.Buyer.Email,
			},
		})
		resCh <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGateway, ctx.Err())
	case res := <-resCh:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGateway, res.err)
		}
		return &Payment{
			PaymentID:   res.resp.Token,
			RedirectURL: res.resp.RedirectURL,
		}, nil
	}
}
