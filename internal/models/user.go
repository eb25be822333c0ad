package models

import "time"

// OTP purposes. Один активный код на пользователя: новый код любого
// назначения перезаписывает предыдущий.
const (
	OTPPurposeVerifyEmail   = "verify_email"
	OTPPurposeResetPassword = "reset_password"
)

// User представляет учетную запись на сервере.
// PasswordHash и OTPHash - argon2id, plaintext никогда не сохраняется.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	OTPHash         string     `json:"-"`
	OTPPurpose      string     `json:"-"`
	OTPExpiresAt    *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

// IsVerified reports whether the user's email has been verified
func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

// HasActiveOTP проверяет, что у пользователя есть непросроченный OTP код
// заданного назначения
func (u *User) HasActiveOTP(purpose string, now time.Time) bool {
	return u.OTPHash != "" &&
		u.OTPPurpose == purpose &&
		u.OTPExpiresAt != nil &&
		now.Before(*u.OTPExpiresAt)
}

// RefreshToken привязывает выданный access token (по его jti) к окну
// обновления: пока запись жива, токен с этим jti можно обменять на новый.
// Logout удаляет все записи пользователя и тем самым отзывает его сессии.
type RefreshToken struct {
	ID        string    `json:"id"` // jti выданного access token
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"` // конец окна обновления
	CreatedAt time.Time `json:"created_at"`
}
