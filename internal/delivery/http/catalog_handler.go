package http

import (
	"net/http"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/service"
)

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := decodeProductFilter(r, isAdmin(claimsFrom(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.IsActive && !isAdmin(claimsFrom(r.Context())) {
		writeError(w, r, entity.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.Create(r.Context(), service.ProductInput{
		SellerID:      claimsFrom(r.Context()).UserID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Category:      req.Category,
		Brand:         req.Brand,
		Condition:     req.Condition,
		Stock:         req.Stock,
		Images:        req.Images,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.Update(r.Context(), r.PathValue("id"), service.ProductPatch{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Category:      req.Category,
		Brand:         req.Brand,
		Condition:     req.Condition,
		Stock:         req.Stock,
		Images:        req.Images,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
