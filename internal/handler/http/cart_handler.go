package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tokobelanja/checkout-service/internal/cart"
)

type UpdateCartStatusRequest struct {
	Status          string  `json:"status" validate:"required,oneof=checkout abandoned"`
	ShippingAddress *string `json:"shipping_address,omitempty"`
}

// cartView is the cart shape exposed over the wire.
type cartView struct {
	ID              uuid.UUID `json:"id"`
	TotalPrice      float64   `json:"total_price"`
	ShippingAddress string    `json:"shipping_address"`
	Status          string    `json:"status"`
}

type userCartView struct {
	UserID uuid.UUID `json:"user_id"`
	Cart   cartView  `json:"cart"`
}

func newCartView(c *cart.Cart) cartView {
	return cartView{
		ID:              c.ID,
		TotalPrice:      c.TotalPrice,
		ShippingAddress: c.ShippingAddress,
		Status:          c.Status.String(),
	}
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Post("/carts/{userId}", h.handlePostCart)
	router.Get("/carts", h.handleGetCarts)
	router.Get("/carts/{id}", h.handleGetCartByID)
	router.Get("/users/{userId}/carts", h.handleGetCartsByUser)
	router.Put("/carts/{id}/status", h.handlePutCartStatus)
	router.Delete("/carts/{id}", h.handleDeleteCart)
}

func (h *CartHandler) handlePostCart(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.FromString(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "USER_ID_REQUIRED")
		return
	}

	result, err := h.service.GetOrCreateActiveCart(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to get or create cart")
		respondServiceError(w, err)
		return
	}

	message := "ACTIVE_CART_ALREADY_EXISTS"
	if result.Created {
		message = "CART_CREATE_SUCCESS"
	}

	respondSuccess(w, http.StatusOK, message, map[string]any{
		"user": result.OwnerName,
		"cart": newCartView(result.Cart),
	})
}

func (h *CartHandler) handleGetCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := h.service.ListCarts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list carts")
		respondServiceError(w, err)
		return
	}

	views := make([]userCartView, 0, len(carts))
	for i := range carts {
		views = append(views, userCartView{
			UserID: carts[i].UserID,
			Cart:   newCartView(&carts[i]),
		})
	}

	respondList(w, http.StatusOK, "CART_FOUND", len(views), views)
}

func (h *CartHandler) handleGetCartByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "CART_ID_REQUIRED")
		return
	}

	detail, err := h.service.GetCart(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", id).Msg("Failed to get cart")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "CART_FOUND", map[string]any{
		"user": detail.OwnerName,
		"cart": newCartView(detail.Cart),
	})
}

func (h *CartHandler) handleGetCartsByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.FromString(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "USER_ID_REQUIRED")
		return
	}

	result, err := h.service.ListCartsByUser(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to list carts for user")
		respondServiceError(w, err)
		return
	}

	views := make([]cartView, 0, len(result.Carts))
	for i := range result.Carts {
		views = append(views, newCartView(&result.Carts[i]))
	}

	respondSuccess(w, http.StatusOK, "CART_FOUND", map[string]any{
		"user":  result.OwnerName,
		"count": len(views),
		"cart":  views,
	})
}

func (h *CartHandler) handlePutCartStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "CART_ID_REQUIRED")
		return
	}

	var requestPayload UpdateCartStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode cart status payload")
		respondError(w, http.StatusBadRequest, "CART_STATUS_INVALID")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondError(w, http.StatusBadRequest, "CART_STATUS_INVALID")
		return
	}

	updated, err := h.service.SetStatus(r.Context(), id, cart.Status(requestPayload.Status), requestPayload.ShippingAddress)
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", id).Str("new_status", requestPayload.Status).Msg("Failed to update cart status")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "CART_UPDATE_SUCCESS", newCartView(updated))
}

func (h *CartHandler) handleDeleteCart(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "CART_ID_REQUIRED")
		return
	}

	if err := h.service.DeleteCart(r.Context(), id); err != nil {
		log.Error().Err(err).Stringer("cart_id", id).Msg("Failed to delete cart")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "CART_DELETE_SUCCESS", nil)
}
