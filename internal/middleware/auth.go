package middleware

import (
	"context"
	"net/http"
)

type ctxKey int

const ownerKey ctxKey = iota

// OwnerHeader carries the caller identity verified by the upstream gateway.
// Token verification itself happens before requests reach this service.
const OwnerHeader = "X-Owner-ID"

// RequireOwner rejects requests without a caller identity and stores it on
// the request context for the controllers.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(OwnerHeader)
		if owner == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"missing caller identity"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

// OwnerID returns the caller identity set by RequireOwner.
func OwnerID(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
