package handlers

import (
	"net/http"

	"cartsync/application/services"
	"cartsync/domain/core/entities"
	"cartsync/pkg/common"
	pkgerrors "cartsync/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartHandler handles cart-related HTTP requests
type CartHandler struct {
	base
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions SessionProvider, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *CartHandler {
	return &CartHandler{base{sessions: sessions, errors: errs, logger: logger}}
}

// LineItemRequest describes the product being added
type LineItemRequest struct {
	ID     string  `json:"id" validate:"required,max=128"`
	Name   string  `json:"name" validate:"max=500"`
	Price  float64 `json:"price" validate:"gte=0"`
	Vendor string  `json:"vendor" validate:"max=200"`
	Image  string  `json:"image" validate:"max=2048"`
}

// AddToCartRequest represents the request body for adding to the cart.
// A missing or zero quantity adds one unit.
type AddToCartRequest struct {
	Item     LineItemRequest `json:"item" validate:"required"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

// UpdateQuantityRequest represents the request body for a quantity change
type UpdateQuantityRequest struct {
	Delta *int `json:"delta" validate:"required"`
}

// AddToCartResponse is returned after an add
type AddToCartResponse struct {
	Item entities.LineItem  `json:"item"`
	Cart services.CartView `json:"cart"`
}

// CartChangeResponse reports whether a mutation changed anything
type CartChangeResponse struct {
	Changed bool              `json:"changed"`
	Cart    services.CartView `json:"cart"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.RespondJSON(w, http.StatusOK, s.Cart.View())
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	item, err := entities.NewLineItem(req.Item.ID, req.Item.Name, req.Item.Price, 1, req.Item.Vendor, req.Item.Image)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	line, err := s.Cart.AddToCart(r.Context(), item, req.Quantity)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, AddToCartResponse{Item: line, Cart: s.Cart.View()})
}

// UpdateQuantity handles PATCH /cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	changed, err := s.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), *req.Delta)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, CartChangeResponse{Changed: changed, Cart: s.Cart.View()})
}

// RemoveItem handles DELETE /cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	removed, err := s.Cart.RemoveFromCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, CartChangeResponse{Changed: removed, Cart: s.Cart.View()})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Cart.ClearCart(r.Context())
	common.RespondNoContent(w)
}
