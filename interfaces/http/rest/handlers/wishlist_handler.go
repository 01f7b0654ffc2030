package handlers

import (
	"net/http"

	"cartsync/domain/core/entities"
	"cartsync/pkg/common"
	pkgerrors "cartsync/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WishlistHandler handles wishlist-related HTTP requests
type WishlistHandler struct {
	base
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(sessions SessionProvider, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *WishlistHandler {
	return &WishlistHandler{base{sessions: sessions, errors: errs, logger: logger}}
}

// WishlistItemRequest represents the request body for saving a product
type WishlistItemRequest struct {
	ID       string  `json:"id" validate:"required,max=128"`
	Name     string  `json:"name" validate:"max=500"`
	Price    float64 `json:"price" validate:"gte=0"`
	Image    string  `json:"image" validate:"max=2048"`
	Material string  `json:"material" validate:"max=200"`
}

// WishlistResponse lists the saved products
type WishlistResponse struct {
	Items []entities.WishlistItem `json:"items"`
}

// WishlistChangeResponse reports whether a mutation changed anything
type WishlistChangeResponse struct {
	Changed bool                    `json:"changed"`
	Items   []entities.WishlistItem `json:"items"`
}

// MembershipResponse answers isWishlisted
type MembershipResponse struct {
	ID         string `json:"id"`
	Wishlisted bool   `json:"wishlisted"`
}

// GetWishlist handles GET /wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.RespondJSON(w, http.StatusOK, WishlistResponse{Items: s.Wishlist.Items()})
}

// AddItem handles POST /wishlist/items. Saving a product twice is not an error.
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req WishlistItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	item, err := entities.NewWishlistItem(req.ID, req.Name, req.Price, req.Image, req.Material)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	added, err := s.Wishlist.AddToWishlist(r.Context(), item)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, WishlistChangeResponse{Changed: added, Items: s.Wishlist.Items()})
}

// RemoveItem handles DELETE /wishlist/items/{id}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	removed, err := s.Wishlist.RemoveFromWishlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, WishlistChangeResponse{Changed: removed, Items: s.Wishlist.Items()})
}

// IsWishlisted handles GET /wishlist/items/{id}
func (h *WishlistHandler) IsWishlisted(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	wishlisted, err := s.Wishlist.IsWishlisted(id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, MembershipResponse{ID: id, Wishlisted: wishlisted})
}
