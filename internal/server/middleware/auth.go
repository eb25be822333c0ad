package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sliceops/sliceops/internal/server/handlers"
)

// AuthMiddleware создает middleware для проверки bearer token.
// Валидный токен кладет user_id и email в контекст запроса.
func AuthMiddleware(jwtConfig handlers.JWTConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				sendUnauthorized(w, "Authorization header is required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				sendUnauthorized(w, "invalid Authorization header format")
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
				sendUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, handlers.EmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sendUnauthorized отправляет 401 в форме auth envelope
func sendUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
