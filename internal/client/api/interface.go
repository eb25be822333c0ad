package api

import (
	"context"

	"github.com/sliceops/sliceops/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI defines the backend surface consumed by the auth session manager.
// Позволяет подменять HTTP клиент в тестах.
type ClientAPI interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	VerifyEmail(ctx context.Context, req api.VerifyEmailRequest) (*api.AuthResponse, error)
	ResendVerificationOTP(ctx context.Context, req api.ResendOTPRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	ForgotPassword(ctx context.Context, req api.ForgotPasswordRequest) (*api.AuthResponse, error)
	ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error)
	Me(ctx context.Context) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
}

// Compile-time check that Client implements ClientAPI
var _ ClientAPI = (*Client)(nil)
