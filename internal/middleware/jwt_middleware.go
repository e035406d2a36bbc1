package middleware

import (
	"context"
	"net/http"
	"strings"

	"aicore/internal/auth"
	"aicore/internal/utils"
)

// ContextKey defines the type for context keys to avoid conflicts
type ContextKey string

// ClaimsKey is the context key for the authenticated token claims
const ClaimsKey ContextKey = "claims"

// JWTMiddleware validates bearer service tokens and enforces role-based
// access. With no required roles any valid token passes.
func JWTMiddleware(secret []byte, requiredRoles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
				return
			}

			claims, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if len(requiredRoles) > 0 && !claims.HasRole(requiredRoles...) {
				utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects requests whose claims grant none of roles. It must
// run after JWTMiddleware.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
				return
			}
			if !claims.HasRole(roles...) {
				utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the token claims from the request context
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}
