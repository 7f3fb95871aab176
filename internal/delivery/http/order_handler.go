package http

import (
	"net/http"
	"strings"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/service"
	"github.com/shopspring/decimal"
)

type cartResponse struct {
	*entity.Cart
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
}

func writeCart(w http.ResponseWriter, cart *entity.Cart) {
	writeJSON(w, http.StatusOK, cartResponse{Cart: cart, Subtotal: cart.Subtotal(), ItemCount: cart.ItemCount()})
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cart.Get(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, cart)
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := h.cart.AddItem(r.Context(), claimsFrom(r.Context()).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, cart)
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := h.cart.UpdateQuantity(r.Context(), claimsFrom(r.Context()).UserID, r.PathValue("lineId"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, cart)
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cart.RemoveItem(r.Context(), claimsFrom(r.Context()).UserID, r.PathValue("lineId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, cart)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), claimsFrom(r.Context()).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.CreateOrder(r.Context(), service.CreateOrderInput{
		BuyerID:         claimsFrom(r.Context()).UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListBuyerOrders(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ownedOrder loads the order in the path and checks that the caller is its
// buyer or an admin.
func (h *Handler) ownedOrder(r *http.Request) (*entity.Order, error) {
	order, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	claims := claimsFrom(r.Context())
	if order.BuyerID != claims.UserID && !isAdmin(claims) {
		return nil, entity.ErrForbidden
	}
	return order, nil
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.ownedOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	order, err := h.ownedOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.orders.History(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.ownedOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err = h.orders.CancelOrder(r.Context(), order.ID, claimsFrom(r.Context()).UserID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type declinedResponse struct {
	Error   string          `json:"error"`
	Payment *entity.Payment `json:"payment"`
}

func (h *Handler) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.ownedOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := req.IdempotencyKey
	if header := strings.TrimSpace(r.Header.Get("Idempotency-Key")); header != "" {
		key = header
	}
	p, err := h.payments.ProcessPayment(r.Context(), service.ProcessPaymentInput{
		OrderID:        order.ID,
		Method:         req.Method,
		Reference:      req.Reference,
		IdempotencyKey: key,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p.Status == entity.PaymentStatusFailed {
		writeJSON(w, statusFor(entity.ErrPaymentDeclined), declinedResponse{Error: entity.ErrPaymentDeclined.Error(), Payment: p})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	order, err := h.ownedOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.payments.GetPayment(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
