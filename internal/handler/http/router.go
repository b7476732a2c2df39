package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tokobelanja/checkout-service/internal/cart"
	"github.com/tokobelanja/checkout-service/internal/checkout"
	"github.com/tokobelanja/checkout-service/internal/transaction"
	"github.com/tokobelanja/checkout-service/pkg/metrics"
)

func NewRouter(cartSvc cart.Service, checkoutSvc checkout.Service, transactionSvc transaction.Service, m *metrics.ServerMetrics) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		if m != nil {
			api.Use(instrument(m))
		}

		NewCartHandler(cartSvc).RegisterRoutes(api)
		NewCartItemHandler(cartSvc).RegisterRoutes(api)
		NewTransactionHandler(checkoutSvc, transactionSvc).RegisterRoutes(api)
	})

	return r
}
