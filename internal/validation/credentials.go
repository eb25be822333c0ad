package validation

import (
	"fmt"
	"regexp"
)

// EmailPattern определяет допустимый формат email.
// Упрощенная проверка: local@domain.tld, без пробелов
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// OTPPattern определяет формат одноразового кода: ровно 6 цифр
var OTPPattern = regexp.MustCompile(`^[0-9]{6}$`)

const (
	// MaxEmailLen максимальная длина email
	MaxEmailLen = 254
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxNameLen максимальная длина имени пользователя
	MaxNameLen = 128
)

// ValidateEmail проверяет, что email соответствует требованиям
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	if !EmailPattern.MatchString(email) {
		return fmt.Errorf("email format is invalid")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
// Минимум 8 символов
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}

// ValidateName проверяет отображаемое имя пользователя
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if len(name) > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}

	return nil
}

// ValidateOTP проверяет формат одноразового кода подтверждения
func ValidateOTP(otp string) error {
	if otp == "" {
		return fmt.Errorf("otp cannot be empty")
	}

	if !OTPPattern.MatchString(otp) {
		return fmt.Errorf("otp must be exactly 6 digits")
	}

	return nil
}
