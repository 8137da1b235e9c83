package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	tenantIDKey  contextKey = "tenant_id"
	actorIDKey   contextKey = "actor_id"
	actorRoleKey contextKey = "actor_role"
)

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantMiddleware requires an X-Tenant-ID header on every request and puts
// the parsed tenant into the context. X-Actor-ID is optional and identifies
// the staff member or patient performing the action.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(r.Header.Get("X-Tenant-ID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-ID header must be a valid UUID")
			return
		}

		ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
		if actorID, err := uuid.Parse(r.Header.Get("X-Actor-ID")); err == nil {
			ctx = context.WithValue(ctx, actorIDKey, actorID)
		}
		if role := r.Header.Get("X-Actor-Role"); role != "" {
			ctx = context.WithValue(ctx, actorRoleKey, role)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs each request with method, path, status, duration, and request ID
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Str("request_id", GetRequestID(r.Context())).
			Msg("http request")
	})
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTenantID retrieves the tenant from context. The zero UUID means the
// request bypassed TenantMiddleware.
func GetTenantID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(tenantIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetActorRole retrieves the acting user's declared role, "" when absent.
func GetActorRole(ctx context.Context) string {
	if role, ok := ctx.Value(actorRoleKey).(string); ok {
		return role
	}
	return ""
}

// GetActorID retrieves the acting user from context, uuid.Nil when absent.
func GetActorID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
