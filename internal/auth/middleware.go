package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/api"
)

type contextKey string

const userIDKey contextKey = "user_id"

var (
	errMissingToken   = &api.AppError{Code: http.StatusUnauthorized, Message: "缺少认证令牌"}
	errMalformedToken = &api.AppError{Code: http.StatusUnauthorized, Message: "认证令牌格式错误"}
	errExpiredToken   = &api.AppError{Code: http.StatusUnauthorized, Message: "认证令牌已过期"}
	errInvalidToken   = &api.AppError{Code: http.StatusUnauthorized, Message: "认证令牌无效"}
)

func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, errMissingToken)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				api.HandleError(w, errMalformedToken)
				return
			}

			claims, err := v.ValidateAccessToken(strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					api.HandleError(w, errExpiredToken)
					return
				}
				api.HandleError(w, errInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}
