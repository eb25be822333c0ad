package api

import "github.com/sliceops/sliceops/internal/models"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Name                 string `json:"name"`                  // отображаемое имя
	Email                string `json:"email"`                 // email пользователя
	Password             string `json:"password"`              // пароль
	PasswordConfirmation string `json:"password_confirmation"` // подтверждение пароля
}

// VerifyEmailRequest представляет запрос на подтверждение email по OTP коду
type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"` // 6-значный код из письма
}

// ResendOTPRequest представляет запрос на повторную отправку OTP кода
type ResendOTPRequest struct {
	Email string `json:"email"`
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest представляет запрос на восстановление пароля
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest представляет запрос на сброс пароля по OTP коду
type ResetPasswordRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	OTP                  string `json:"otp"`
}

// AuthData содержит полезную нагрузку успешного auth ответа.
// Оба поля опциональны: login/refresh возвращают token, login/me возвращают user.
type AuthData struct {
	Token string           `json:"token,omitempty"` // bearer token
	User  *models.Identity `json:"user,omitempty"`  // текущий пользователь
}

// AuthResponse представляет единый envelope всех auth endpoint'ов:
// { success, message?, data?, errors? }
// Не-2xx ответы используют ту же форму тела для извлечения деталей ошибки.
type AuthResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    *AuthData           `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"` // field -> messages (422)
}

// Token возвращает bearer token из ответа или пустую строку
func (r *AuthResponse) Token() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.Token
}

// User возвращает identity из ответа или nil
func (r *AuthResponse) User() *models.Identity {
	if r == nil || r.Data == nil {
		return nil
	}
	return r.Data.User
}
