package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tokobelanja/checkout-service/internal/cart"
	"github.com/tokobelanja/checkout-service/internal/catalog"
	"github.com/tokobelanja/checkout-service/internal/checkout"
	"github.com/tokobelanja/checkout-service/internal/payment"
	"github.com/tokobelanja/checkout-service/internal/transaction"
	"github.com/tokobelanja/checkout-service/internal/user"
)

// envelope is the response shape every endpoint uses: a success flag, a
// machine-readable message code, and an optional payload.
type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondSuccess(w http.ResponseWriter, code int, message string, data any) {
	respondWithJSON(w, code, envelope{Status: true, Message: message, Data: data})
}

func respondList(w http.ResponseWriter, code int, message string, count int, data any) {
	respondWithJSON(w, code, envelope{Status: true, Message: message, Count: &count, Data: data})
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, envelope{Status: false, Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":false,"message":"INTERNAL_SERVER_ERROR"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondServiceError maps a service-layer sentinel to its HTTP status and
// message code.
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, mapErrorToStatusCode(err), messageFor(err))
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, transaction.ErrTransactionNotFound),
		errors.Is(err, transaction.ErrTransactionItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrCartNotActive),
		errors.Is(err, cart.ErrInvalidCartStatus),
		errors.Is(err, transaction.ErrInvalidStatus),
		errors.Is(err, transaction.ErrInvalidStatusTransition):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, user.ErrNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, cart.ErrCartNotFound):
		return "CART_NOT_FOUND"
	case errors.Is(err, cart.ErrCartNotActive):
		return "CART_NOT_ACTIVE"
	case errors.Is(err, cart.ErrCartItemNotFound):
		return "CART_ITEM_NOT_FOUND"
	case errors.Is(err, cart.ErrInvalidCartStatus):
		return "CART_STATUS_INVALID"
	case errors.Is(err, catalog.ErrProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, transaction.ErrTransactionNotFound):
		return "TRANSACTION_NOT_FOUND"
	case errors.Is(err, transaction.ErrTransactionItemNotFound):
		return "TRANSACTION_ITEM_NOT_FOUND"
	case errors.Is(err, transaction.ErrInvalidStatus):
		return "TRANSACTION_STATUS_INVALID"
	case errors.Is(err, transaction.ErrInvalidStatusTransition):
		return "TRANSACTION_STATUS_TRANSITION_INVALID"
	case errors.Is(err, checkout.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, payment.ErrGateway):
		return "PAYMENT_GATEWAY_ERROR"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
