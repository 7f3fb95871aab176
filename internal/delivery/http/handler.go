package http

import (
	"net/http"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/service"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth          *service.AuthService
	Catalog       *service.CatalogService
	Cart          *service.CartService
	Orders        *service.OrderService
	Payments      *service.PaymentService
	Settlement    *service.SettlementService
	Verifications *service.VerificationService
	Notifications *service.NotificationService
}

// Handler handles HTTP requests for the application.
type Handler struct {
	auth          *service.AuthService
	catalog       *service.CatalogService
	cart          *service.CartService
	orders        *service.OrderService
	payments      *service.PaymentService
	settlement    *service.SettlementService
	verifications *service.VerificationService
	notifications *service.NotificationService
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:          s.Auth,
		catalog:       s.Catalog,
		cart:          s.Cart,
		orders:        s.Orders,
		payments:      s.Payments,
		settlement:    s.Settlement,
		verifications: s.Verifications,
		notifications: s.Notifications,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.Handle("GET /auth/me", h.authRequired(h.handleMe))

	mux.Handle("GET /products", h.optionalAuth(h.handleListProducts))
	mux.Handle("GET /products/{id}", h.optionalAuth(h.handleGetProduct))
	mux.Handle("POST /products", h.adminOnly(h.handleCreateProduct))
	mux.Handle("PUT /products/{id}", h.adminOnly(h.handleUpdateProduct))
	mux.Handle("DELETE /products/{id}", h.adminOnly(h.handleDeleteProduct))

	mux.Handle("GET /cart", h.authRequired(h.handleGetCart))
	mux.Handle("POST /cart/items", h.authRequired(h.handleAddCartItem))
	mux.Handle("PATCH /cart/items/{lineId}", h.authRequired(h.handleUpdateCartItem))
	mux.Handle("DELETE /cart/items/{lineId}", h.authRequired(h.handleRemoveCartItem))
	mux.Handle("DELETE /cart", h.authRequired(h.handleClearCart))

	mux.Handle("POST /orders", h.authRequired(h.handleCreateOrder))
	mux.Handle("GET /orders", h.authRequired(h.handleListMyOrders))
	mux.Handle("GET /orders/{id}", h.authRequired(h.handleGetOrder))
	mux.Handle("GET /orders/{id}/history", h.authRequired(h.handleOrderHistory))
	mux.Handle("POST /orders/{id}/cancel", h.authRequired(h.handleCancelOrder))
	mux.Handle("POST /orders/{id}/payment", h.authRequired(h.handleProcessPayment))
	mux.Handle("GET /orders/{id}/payment", h.authRequired(h.handleGetPayment))

	mux.Handle("GET /admin/orders", h.adminOnly(h.handleListOrders))
	mux.Handle("GET /admin/orders/{id}/replay", h.adminOnly(h.handleReplayOrder))
	mux.Handle("POST /admin/orders/{id}/verify", h.adminOnly(h.handleVerifyOrder))
	mux.Handle("PATCH /admin/orders/{id}/fulfillment", h.adminOnly(h.handleUpdateFulfillment))
	mux.Handle("GET /admin/summary", h.adminOnly(h.handleSummary))

	mux.Handle("POST /verifications", h.authRequired(h.handleSubmitVerification))
	mux.Handle("GET /verifications/my-status", h.authRequired(h.handleMyVerification))
	mux.Handle("GET /verifications/all", h.adminOnly(h.handleListVerifications))
	mux.Handle("PUT /verifications/{id}/status", h.adminOnly(h.handleReviewVerification))

	mux.Handle("GET /notifications", h.authRequired(h.handleListNotifications))
	mux.Handle("POST /notifications/{id}/read", h.authRequired(h.handleMarkNotificationRead))
}

// Routes returns the full middleware-wrapped handler tree.
func (h *Handler) Routes(serviceName, allowedOrigin string) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return Tracing(serviceName, EnableCORS(allowedOrigin, Recover(Logging(mux))))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, token, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: u})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: u})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Me(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
