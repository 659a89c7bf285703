package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/marca-labs/brandgov/internal/api"
	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/service"
)

type contextKey string

const UserKey contextKey = "user"

type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
	ResolveUser(ctx context.Context, claims *service.Claims) (*domain.User, error)
}

// JWTAuth authenticates requests with a Bearer token and puts the resolved
// user on the request context.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := validator.ValidateToken(token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			user, err := validator.ResolveUser(r.Context(), claims)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the authenticated user from the request context, or nil.
func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserKey).(*domain.User)
	return user
}
