package auth

import (
	"context"
	"net/http"
	"time"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Middleware verifies the bearer token on every request and stores the
// authenticated user id in the request context. A non-nil cache short-cuts
// repeat verifications of the same token.
func Middleware(secret string, cache *TokenCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			userID, cacheErr := cache.Get(r.Context(), rawToken)
			if cacheErr != nil || userID == "" {
				var expiresAt time.Time
				userID, expiresAt, err = VerifyToken(secret, rawToken)
				if err != nil {
					http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
					return
				}
				_ = cache.Set(r.Context(), rawToken, userID, time.Until(expiresAt))
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID stores the authenticated user id on a context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID extracts the authenticated user id placed by Middleware.
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}
