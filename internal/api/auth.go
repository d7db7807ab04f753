package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/log"
)

// KeyResolver maps an API key to a tenant id. Implemented by the tenant store.
type KeyResolver interface {
	ResolveKey(ctx context.Context, apiKey string) (uuid.UUID, error)
}

// tenantAuthMiddleware authenticates dashboard requests with a Bearer API key
// and puts the resolved tenant id on the request context. Every store access
// downstream is scoped to that id; the key itself never travels further.
func tenantAuthMiddleware(resolver KeyResolver, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, ok := bearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "missing API key", logger)
				return
			}

			tenantID, err := resolver.ResolveKey(r.Context(), apiKey)
			if err != nil {
				writeDomainError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyTenantID, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}
