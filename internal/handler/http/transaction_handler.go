package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tokobelanja/checkout-service/internal/checkout"
	"github.com/tokobelanja/checkout-service/internal/transaction"
)

type UpdateTransactionStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type TransactionHandler struct {
	checkout     checkout.Service
	transactions transaction.Service
	validate     *validator.Validate
}

func NewTransactionHandler(checkoutSvc checkout.Service, transactionSvc transaction.Service) *TransactionHandler {
	return &TransactionHandler{
		checkout:     checkoutSvc,
		transactions: transactionSvc,
		validate:     validator.New(),
	}
}

func (h *TransactionHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/checkout", h.handlePostCheckout)
	})
	router.Get("/transactions/{id}", h.handleGetTransaction)
	router.Patch("/transactions/{id}/status", h.handlePatchTransactionStatus)
}

func (h *TransactionHandler) handlePostCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED")
		return
	}

	result, err := h.checkout.Checkout(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Checkout failed")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "TRANSACTION_SUCCESS", result)
}

func (h *TransactionHandler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "TRANSACTION_ID_REQUIRED")
		return
	}

	detail, err := h.transactions.GetDetail(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Stringer("transaction_id", id).Msg("Failed to get transaction")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "TRANSACTION_FOUND", detail)
}

func (h *TransactionHandler) handlePatchTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "TRANSACTION_ID_REQUIRED")
		return
	}

	var requestPayload UpdateTransactionStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode transaction status payload")
		respondError(w, http.StatusBadRequest, "TRANSACTION_STATUS_INVALID")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondError(w, http.StatusBadRequest, "TRANSACTION_STATUS_INVALID")
		return
	}

	err = h.transactions.UpdateStatus(r.Context(), id, transaction.Status(requestPayload.Status))
	if err != nil {
		log.Error().Err(err).Stringer("transaction_id", id).Str("new_status", requestPayload.Status).Msg("Failed to update transaction status")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "TRANSACTION_UPDATE_SUCCESS", nil)
}
