package http

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ctxKey struct{}

// claimsFrom returns the caller's token claims, or nil for anonymous requests.
func claimsFrom(ctx context.Context) *service.Claims {
	c, _ := ctx.Value(ctxKey{}).(*service.Claims)
	return c
}

func isAdmin(c *service.Claims) bool {
	return c != nil && c.Role == entity.RoleAdmin
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authRequired rejects requests without a valid bearer token.
func (h *Handler) authRequired(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, entity.ErrUnauthenticated)
			return
		}
		claims, err := h.auth.ParseToken(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

// optionalAuth attaches claims when a valid token is present and otherwise
// serves the request anonymously.
func (h *Handler) optionalAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if claims, err := h.auth.ParseToken(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims))
			}
		}
		next(w, r)
	})
}

// roleAllowed requires a valid token carrying one of roles.
func (h *Handler) roleAllowed(next http.HandlerFunc, roles ...entity.Role) http.Handler {
	return h.authRequired(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		for _, role := range roles {
			if claims.Role == role {
				next(w, r)
				return
			}
		}
		writeError(w, r, entity.ErrForbidden)
	})
}

func (h *Handler) adminOnly(next http.HandlerFunc) http.Handler {
	return h.roleAllowed(next, entity.RoleAdmin)
}

// EnableCORS is a middleware to allow the React frontend to connect.
func EnableCORS(allowedOrigin string, next http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging writes one access log line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Recover turns a panic in a handler into a 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("Panic while serving request", "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Tracing starts a server span per request. Health checks are not traced.
func Tracing(serviceName string, next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, serviceName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}
