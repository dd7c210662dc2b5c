package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	claimsKey
)

const requestIDHeader = "X-Request-Id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// accessMiddleware logs one line per request and turns a handler panic into
// a 500 envelope.
func (h *Handler) accessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				h.logger.ErrorContext(r.Context(), "handler panic",
					"module", "http.access",
					"layer", "adapter",
					"operation", "recover",
					"outcome", "failure",
					"panic", p,
				)
				writeError(rec, http.StatusInternalServerError, "internal_error", "internal server error", requestIDFromContext(r.Context()))
			}
			h.logger.InfoContext(r.Context(), "request served",
				"module", "http.access",
				"layer", "adapter",
				"operation", r.Method+" "+r.URL.Path,
				"outcome", outcomeOf(rec.status),
				"status", rec.status,
				"elapsed_ms", time.Since(started).Milliseconds(),
				"request_id", requestIDFromContext(r.Context()),
			)
		}()
		next.ServeHTTP(rec, r)
	})
}

func outcomeOf(status int) string {
	if status >= 500 {
		return "failure"
	}
	if status >= 400 {
		return "rejected"
	}
	return "success"
}

// authMiddleware requires a verified bearer token and stores its claims in
// the request context.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing credentials", requestIDFromContext(r.Context()))
			return
		}
		claims, err := h.verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing credentials", requestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func claimsFromContext(ctx context.Context) (ports.AuthClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(ports.AuthClaims)
	return claims, ok
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
