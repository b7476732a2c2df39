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

type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity"`
}

type SetCartItemQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type cartItemView struct {
	CartID      uuid.UUID `json:"cart_id"`
	CartItemID  uuid.UUID `json:"cart_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Subtotal    float64   `json:"subtotal"`
}

type CartItemHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartItemHandler(service cart.Service) *CartItemHandler {
	return &CartItemHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CartItemHandler) RegisterRoutes(router chi.Router) {
	router.Post("/carts/{cartId}/items", h.handlePostCartItem)
	router.Get("/carts/{cartId}/items", h.handleGetCartItems)
	router.Put("/cart-items/{id}", h.handlePutCartItem)
	router.Delete("/cart-items/{id}", h.handleDeleteCartItem)
}

func (h *CartItemHandler) handlePostCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuid.FromString(chi.URLParam(r, "cartId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "CART_ID_REQUIRED")
		return
	}

	var requestPayload AddCartItemRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode cart item payload")
		respondError(w, http.StatusBadRequest, "PRODUCT_ID_REQUIRED")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondError(w, http.StatusBadRequest, "PRODUCT_ID_REQUIRED")
		return
	}

	productID, err := uuid.FromString(requestPayload.ProductID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "PRODUCT_ID_REQUIRED")
		return
	}

	detail, created, err := h.service.UpsertItem(r.Context(), cartID, productID, requestPayload.Quantity)
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", cartID).Stringer("product_id", productID).Msg("Failed to upsert cart item")
		respondServiceError(w, err)
		return
	}

	code := http.StatusOK
	message := "CART_ITEM_UPDATED"
	if created {
		code = http.StatusCreated
		message = "CART_ITEM_CREATED"
	}

	respondSuccess(w, code, message, cartItemView{
		CartID:      detail.CartID,
		CartItemID:  detail.ID,
		ProductID:   detail.ProductID,
		ProductName: detail.ProductName,
		Quantity:    detail.Quantity,
		Price:       detail.Price,
		Subtotal:    detail.Subtotal,
	})
}

func (h *CartItemHandler) handleGetCartItems(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuid.FromString(chi.URLParam(r, "cartId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "CART_ID_REQUIRED")
		return
	}

	details, err := h.service.ListItems(r.Context(), cartID)
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", cartID).Msg("Failed to list cart items")
		respondServiceError(w, err)
		return
	}

	type itemView struct {
		cartItemView
		ProductPrice  float64 `json:"product_price"`
		ProductStocks int     `json:"product_stocks"`
	}

	views := make([]itemView, 0, len(details))
	for _, d := range details {
		views = append(views, itemView{
			cartItemView: cartItemView{
				CartID:      d.CartID,
				CartItemID:  d.ID,
				ProductID:   d.ProductID,
				ProductName: d.ProductName,
				Quantity:    d.Quantity,
				Price:       d.Price,
				Subtotal:    d.Subtotal,
			},
			ProductPrice:  d.ProductPrice,
			ProductStocks: d.ProductStocks,
		})
	}

	respondList(w, http.StatusOK, "CART_ITEM_FOUND", len(views), views)
}

func (h *CartItemHandler) handlePutCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "CART_ITEM_ID_REQUIRED")
		return
	}

	var requestPayload SetCartItemQuantityRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode cart item quantity payload")
		respondError(w, http.StatusBadRequest, "QUANTITY_INVALID")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondError(w, http.StatusBadRequest, "QUANTITY_INVALID")
		return
	}

	item, err := h.service.SetItemQuantity(r.Context(), id, requestPayload.Quantity)
	if err != nil {
		log.Error().Err(err).Stringer("cart_item_id", id).Msg("Failed to set cart item quantity")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "CART_ITEM_UPDATED", cartItemView{
		CartID:     item.CartID,
		CartItemID: item.ID,
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		Price:      item.Price,
		Subtotal:   item.Subtotal,
	})
}

func (h *CartItemHandler) handleDeleteCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "CART_ITEM_ID_REQUIRED")
		return
	}

	if err := h.service.RemoveItem(r.Context(), id); err != nil {
		log.Error().Err(err).Stringer("cart_item_id", id).Msg("Failed to delete cart item")
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, "CART_ITEM_DELETE_SUCCESS", nil)
}
