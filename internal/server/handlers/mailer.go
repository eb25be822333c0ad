package handlers

import (
	"context"
	"log/slog"
)

// Mailer абстрагирует доставку OTP кодов пользователю
type Mailer interface {
	// SendOTP delivers the one-time code for the given purpose
	SendOTP(ctx context.Context, email, purpose, code string) error
}

// DevMailer пишет коды в лог вместо отправки почты.
// Для локальной разработки и тестовых стендов.
type DevMailer struct {
	logger *slog.Logger
}

// NewDevMailer creates a mailer that logs codes instead of sending them
func NewDevMailer(logger *slog.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

func (m *DevMailer) SendOTP(ctx context.Context, email, purpose, code string) error {
	m.logger.InfoContext(ctx, "OTP issued (dev mailer, not sent)",
		slog.String("email", email),
		slog.String("purpose", purpose),
		slog.String("code", code),
	)
	return nil
}
