package handlers

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sliceops/sliceops/internal/crypto"
	"github.com/sliceops/sliceops/internal/models"
	"github.com/sliceops/sliceops/internal/server/storage"
	"github.com/sliceops/sliceops/internal/validation"
	"github.com/sliceops/sliceops/pkg/api"
)

// otpTTL - срок жизни одноразового кода
const otpTTL = 10 * time.Minute

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger     *slog.Logger
	users      storage.UserStorage
	tokens     storage.TokenStorage
	identities storage.IdentityStorage
	mailer     Mailer
	jwtConfig  JWTConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(
	logger *slog.Logger,
	users storage.UserStorage,
	tokens storage.TokenStorage,
	identities storage.IdentityStorage,
	mailer Mailer,
	jwtConfig JWTConfig,
) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		users:      users,
		tokens:     tokens,
		identities: identities,
		mailer:     mailer,
		jwtConfig:  jwtConfig,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Создает аккаунт и отправляет OTP код подтверждения email
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	fieldErrors := map[string][]string{}
	if err := validation.ValidateName(req.Name); err != nil {
		fieldErrors["name"] = append(fieldErrors["name"], err.Error())
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		fieldErrors["email"] = append(fieldErrors["email"], err.Error())
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		fieldErrors["password"] = append(fieldErrors["password"], err.Error())
	}
	if req.Password != req.PasswordConfirmation {
		fieldErrors["password"] = append(fieldErrors["password"], "password confirmation does not match")
	}
	if len(fieldErrors) > 0 {
		h.sendValidationError(w, fieldErrors)
		return
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "email already taken", slog.String("email", user.Email))
			h.sendValidationError(w, map[string][]string{
				"email": {"The email has already been taken."},
			})
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.issueOTP(ctx, user, models.OTPPurposeVerifyEmail); err != nil {
		h.logger.ErrorContext(ctx, "failed to issue verification otp", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		slog.String("email", user.Email),
		slog.String("user_id", user.ID))

	h.sendJSON(w, &api.AuthResponse{
		Success: true,
		Message: "Registration successful. A verification code has been sent to your email.",
	}, http.StatusCreated)
}

// VerifyEmail обрабатывает POST /api/v1/auth/verify-email
// Подтверждает email по OTP коду
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateOTP(req.OTP); err != nil {
		h.sendValidationError(w, map[string][]string{"otp": {err.Error()}})
		return
	}

	user := h.userByEmail(ctx, w, req.Email)
	if user == nil {
		return
	}

	if user.IsVerified() {
		h.sendJSON(w, &api.AuthResponse{Success: true, Message: "Email is already verified."}, http.StatusOK)
		return
	}

	if !h.checkOTP(user, models.OTPPurposeVerifyEmail, req.OTP) {
		h.sendValidationError(w, map[string][]string{
			"otp": {"The verification code is invalid or has expired."},
		})
		return
	}

	now := time.Now()
	user.EmailVerifiedAt = &now
	h.clearOTP(user)
	user.UpdatedAt = now

	if err := h.users.UpdateUser(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "failed to mark email verified", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "email verified", slog.String("user_id", user.ID))

	h.sendJSON(w, &api.AuthResponse{Success: true, Message: "Email verified successfully."}, http.StatusOK)
}

// ResendVerificationOTP обрабатывает POST /api/v1/auth/resend-verification-otp
func (h *AuthHandler) ResendVerificationOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ResendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user := h.userByEmail(ctx, w, req.Email)
	if user == nil {
		return
	}

	if user.IsVerified() {
		h.sendValidationError(w, map[string][]string{
			"email": {"The email is already verified."},
		})
		return
	}

	if err := h.issueOTP(ctx, user, models.OTPPurposeVerifyEmail); err != nil {
		h.logger.ErrorContext(ctx, "failed to reissue verification otp", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, &api.AuthResponse{
		Success: true,
		Message: "A new verification code has been sent to your email.",
	}, http.StatusOK)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация: выдает access token и полный identity профиль
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("email", req.Email))
			h.sendError(w, "Invalid credentials.", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := crypto.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		h.logger.WarnContext(ctx, "login failed: wrong password", slog.String("email", req.Email))
		h.sendError(w, "Invalid credentials.", http.StatusUnauthorized)
		return
	}

	if !user.IsVerified() {
		h.sendError(w, "Email is not verified. Please verify your email first.", http.StatusForbidden)
		return
	}

	token, err := h.issueAccessToken(ctx, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Не критичная ошибка, логируем но не прерываем
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	identity, err := h.identities.GetIdentity(ctx, user.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to assemble identity", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		slog.String("email", user.Email),
		slog.String("user_id", user.ID))

	h.sendJSON(w, &api.AuthResponse{
		Success: true,
		Message: "Authenticated.",
		Data:    &api.AuthData{Token: token, User: identity},
	}, http.StatusOK)
}

// ForgotPassword обрабатывает POST /api/v1/auth/forgot-password
// Всегда отвечает успехом, чтобы не раскрывать существование аккаунта
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err == nil {
		if err := h.issueOTP(ctx, user, models.OTPPurposeResetPassword); err != nil {
			h.logger.ErrorContext(ctx, "failed to issue recovery otp", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, &api.AuthResponse{
		Success: true,
		Message: "If the email exists, a recovery code has been sent.",
	}, http.StatusOK)
}

// ResetPassword обрабатывает POST /api/v1/auth/reset-password
// Сбрасывает пароль по OTP коду и отзывает все сессии пользователя
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	fieldErrors := map[string][]string{}
	if err := validation.ValidatePassword(req.Password); err != nil {
		fieldErrors["password"] = append(fieldErrors["password"], err.Error())
	}
	if req.Password != req.PasswordConfirmation {
		fieldErrors["password"] = append(fieldErrors["password"], "password confirmation does not match")
	}
	if err := validation.ValidateOTP(req.OTP); err != nil {
		fieldErrors["otp"] = append(fieldErrors["otp"], err.Error())
	}
	if len(fieldErrors) > 0 {
		h.sendValidationError(w, fieldErrors)
		return
	}

	user := h.userByEmail(ctx, w, req.Email)
	if user == nil {
		return
	}

	if !h.checkOTP(user, models.OTPPurposeResetPassword, req.OTP) {
		h.sendValidationError(w, map[string][]string{
			"otp": {"The recovery code is invalid or has expired."},
		})
		return
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user.PasswordHash = passwordHash
	h.clearOTP(user)
	user.UpdatedAt = time.Now()

	if err := h.users.UpdateUser(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "failed to update password", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Смена пароля отзывает все выданные токены
	if deleted, err := h.tokens.DeleteUserTokens(ctx, user.ID); err != nil {
		h.logger.WarnContext(ctx, "failed to revoke user tokens", slog.Any("error", err))
	} else if deleted > 0 {
		h.logger.InfoContext(ctx, "sessions revoked after password reset",
			slog.String("user_id", user.ID),
			slog.Int("tokens_deleted", deleted))
	}

	h.sendJSON(w, &api.AuthResponse{Success: true, Message: "Password has been reset."}, http.StatusOK)
}

// Me обрабатывает GET /api/v1/auth/me
// Возвращает свежесобранный identity профиль текущего пользователя
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	identity, err := h.identities.GetIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.sendError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to assemble identity", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, &api.AuthResponse{
		Success: true,
		Data:    &api.AuthData{User: identity},
	}, http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh-token
// Принимает истёкший (но подлинный) bearer token и, пока жива серверная
// запись его jti, выдает новый токен с ротацией записи
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenString, ok := bearerToken(r)
	if !ok {
		h.sendError(w, "Authorization header is required", http.StatusUnauthorized)
		return
	}

	claims, err := ParseAccessTokenAllowExpired(h.jwtConfig, tokenString)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh failed: bad token", slog.Any("error", err))
		h.sendError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	record, err := h.tokens.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh failed: token revoked", slog.String("user_id", claims.UserID))
			h.sendError(w, "token has been revoked", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if time.Now().After(record.ExpiresAt) {
		h.logger.WarnContext(ctx, "refresh failed: window expired", slog.String("user_id", record.UserID))
		if err := h.tokens.DeleteRefreshToken(ctx, record.ID); err != nil {
			h.logger.WarnContext(ctx, "failed to delete expired token record", slog.Any("error", err))
		}
		h.sendError(w, "refresh window expired, please login again", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Ротация: старая запись удаляется до выдачи нового токена
	if err := h.tokens.DeleteRefreshToken(ctx, record.ID); err != nil {
		h.logger.WarnContext(ctx, "failed to delete rotated token record", slog.Any("error", err))
	}

	token, err := h.issueAccessToken(ctx, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "token refreshed", slog.String("user_id", user.ID))

	h.sendJSON(w, &api.AuthResponse{
		Success: true,
		Message: "Token refreshed.",
		Data:    &api.AuthData{Token: token},
	}, http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Отзывает все refresh записи пользователя
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	deletedCount, err := h.tokens.DeleteUserTokens(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to delete user tokens", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
		slog.Int("tokens_deleted", deletedCount))

	h.sendJSON(w, &api.AuthResponse{Success: true, Message: "Logged out."}, http.StatusOK)
}

// issueAccessToken выдает access token и создаёт refresh запись его jti
func (h *AuthHandler) issueAccessToken(ctx context.Context, user *models.User) (string, error) {
	token, jti, refreshExpiry, err := GenerateAccessToken(h.jwtConfig, user.ID, user.Email)
	if err != nil {
		return "", err
	}

	record := &models.RefreshToken{
		ID:        jti,
		UserID:    user.ID,
		ExpiresAt: refreshExpiry,
		CreatedAt: time.Now(),
	}
	if err := h.tokens.SaveRefreshToken(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save refresh token: %w", err)
	}

	return token, nil
}

// issueOTP генерирует код, сохраняет его hash и отправляет через mailer
func (h *AuthHandler) issueOTP(ctx context.Context, user *models.User, purpose string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}

	codeHash, err := crypto.HashPassword(code)
	if err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}

	expiry := time.Now().Add(otpTTL)
	user.OTPHash = codeHash
	user.OTPPurpose = purpose
	user.OTPExpiresAt = &expiry
	user.UpdatedAt = time.Now()

	if err := h.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	if err := h.mailer.SendOTP(ctx, user.Email, purpose, code); err != nil {
		return fmt.Errorf("failed to send otp: %w", err)
	}

	return nil
}

// checkOTP сверяет код с сохранённым hash с учётом назначения и срока
func (h *AuthHandler) checkOTP(user *models.User, purpose, code string) bool {
	if !user.HasActiveOTP(purpose, time.Now()) {
		return false
	}
	return crypto.VerifyPassword(code, user.OTPHash) == nil
}

func (h *AuthHandler) clearOTP(user *models.User) {
	user.OTPHash = ""
	user.OTPPurpose = ""
	user.OTPExpiresAt = nil
}

// userByEmail достаёт пользователя, отвечая 422 на неизвестный email.
// Возвращает nil, если ответ уже отправлен.
func (h *AuthHandler) userByEmail(ctx context.Context, w http.ResponseWriter, email string) *models.User {
	user, err := h.users.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.sendValidationError(w, map[string][]string{
				"email": {"No account found for this email."},
			})
			return nil
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return nil
	}
	return user
}

// generateOTP возвращает случайный 6-значный код
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// bearerToken извлекает токен из Authorization header
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет envelope с ошибкой
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, &api.AuthResponse{Success: false, Message: message}, statusCode)
}

// sendValidationError отправляет 422 с картой ошибок по полям
func (h *AuthHandler) sendValidationError(w http.ResponseWriter, fieldErrors map[string][]string) {
	h.sendJSON(w, &api.AuthResponse{
		Success: false,
		Message: "The given data was invalid.",
		Errors:  fieldErrors,
	}, http.StatusUnprocessableEntity)
}
