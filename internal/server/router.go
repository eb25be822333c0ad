package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sliceops/sliceops/internal/server/handlers"
	"github.com/sliceops/sliceops/internal/server/middleware"
)

// RouterConfig собирает зависимости HTTP роутера
type RouterConfig struct {
	Logger        *slog.Logger
	AuthHandler   *handlers.AuthHandler
	HealthHandler *handlers.HealthHandler
	JWTConfig     handlers.JWTConfig
}

// NewRouter собирает все маршруты и middleware цепочку сервера.
// Снаружи внутрь: recovery -> logging (без health) -> rate limit -> mux.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", cfg.HealthHandler.Health)

	mux.HandleFunc("POST /api/v1/auth/register", cfg.AuthHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/verify-email", cfg.AuthHandler.VerifyEmail)
	mux.HandleFunc("POST /api/v1/auth/resend-verification-otp", cfg.AuthHandler.ResendVerificationOTP)
	mux.HandleFunc("POST /api/v1/auth/login", cfg.AuthHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/forgot-password", cfg.AuthHandler.ForgotPassword)
	mux.HandleFunc("POST /api/v1/auth/reset-password", cfg.AuthHandler.ResetPassword)
	mux.HandleFunc("POST /api/v1/auth/refresh-token", cfg.AuthHandler.Refresh)

	// Endpoints под bearer token
	authRequired := middleware.AuthMiddleware(cfg.JWTConfig, cfg.Logger)
	mux.Handle("GET /api/v1/auth/me", authRequired(http.HandlerFunc(cfg.AuthHandler.Me)))
	mux.Handle("POST /api/v1/auth/logout", authRequired(http.HandlerFunc(cfg.AuthHandler.Logout)))

	// Подбор паролей и OTP кодов ограничиваем жестче остального API
	rateLimit := middleware.RateLimitByPathMiddleware([]middleware.PathRateLimit{
		{Path: "/api/v1/auth/login", Rate: 10, Window: time.Minute},
		{Path: "/api/v1/auth/register", Rate: 5, Window: time.Minute},
		{Path: "/api/v1/auth/verify-email", Rate: 10, Window: time.Minute},
		{Path: "/api/v1/auth/resend-verification-otp", Rate: 3, Window: time.Minute},
		{Path: "/api/v1/auth/forgot-password", Rate: 3, Window: time.Minute},
		{Path: "/api/v1/auth/reset-password", Rate: 10, Window: time.Minute},
	}, 100, time.Minute, cfg.Logger)

	logging := middleware.LoggingWithSkip(cfg.Logger, []string{"/api/v1/health"})
	recovery := middleware.RecoveryMiddleware(cfg.Logger)

	return recovery(logging(rateLimit(mux)))
}
