package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/logger"
	"github.com/petermazzocco/beauty-advisor/internal/respond"
)

type contextKey struct{}

// UserID returns the authenticated user id set by Middleware.
func UserID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(contextKey{}).(uint)
	return id, ok && id != 0
}

func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware requires "Authorization: Bearer <token>" carrying the
// user's current session token.
func Middleware(svc *Service, rw respond.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				rw.Error(w, r, apperr.Unauthorized("Access denied. No token provided."))
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				rw.Error(w, r, apperr.Unauthorized("Invalid token"))
				return
			}

			userID, err := svc.Authenticate(r.Context(), parts[1])
			if err != nil {
				rw.Error(w, r, err)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.Uint("user_id", userID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
