package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
)

type ctxKey string

const (
	requestIDCtxKey ctxKey = "request_id"
	claimsCtxKey    ctxKey = "claims"
	bodyCtxKey      ctxKey = "body"
)

// requestID tags every request with an id that shows up in server-side
// error logs and the X-Request-Id response header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDCtxKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission rejects the request before the body is read unless the
// bearer token verifies and carries permission.
func (h *Handler) requirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := h.authService.Authorize(r.Context(), r.Header.Get("Authorization"), permission)
			if err != nil {
				var authErr *domain.AuthError
				if errors.As(err, &authErr) {
					writeError(w, authErr.Status, authErr.Description)
					return
				}
				log.Printf("[%s] authorize: %v", requestIDFromContext(r.Context()), err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateSchema reads the JSON body, checks it against the named schema
// and stashes the raw document for the handler. Runs strictly before any
// persistence access.
func (h *Handler) validateSchema(schema string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
			decoder := json.NewDecoder(r.Body)
			var body json.RawMessage
			if err := decoder.Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json body")
				return
			}
			if err := ensureEOF(decoder); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json body")
				return
			}

			if err := h.schemaService.Validate(schema, body); err != nil {
				var violation *domain.ErrSchemaViolation
				if errors.As(err, &violation) {
					writeError(w, http.StatusBadRequest, violation.Error())
					return
				}
				log.Printf("[%s] validate schema %s: %v", requestIDFromContext(r.Context()), schema, err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), bodyCtxKey, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

func claimsFromContext(ctx context.Context) domain.Claims {
	claims, _ := ctx.Value(claimsCtxKey).(domain.Claims)
	return claims
}

func bodyFromContext(ctx context.Context) json.RawMessage {
	body, _ := ctx.Value(bodyCtxKey).(json.RawMessage)
	return body
}
