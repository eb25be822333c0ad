package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/sliceops/sliceops/internal/client/storage"
	"github.com/sliceops/sliceops/pkg/api"
)

// memTokenStorage - in-memory TokenStorage с переключаемыми отказами
type memTokenStorage struct {
	mu       sync.Mutex
	record   *storage.TokenRecord
	failSave bool
	failGet  bool
	saves    int
	deletes  int
}

func (m *memTokenStorage) SaveToken(_ context.Context, record *storage.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failSave {
		return errors.New("disk full")
	}
	cp := *record
	m.record = &cp
	return nil
}

func (m *memTokenStorage) GetToken(_ context.Context) (*storage.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("read error")
	}
	if m.record == nil {
		return nil, storage.ErrTokenNotFound
	}
	cp := *m.record
	return &cp, nil
}

func (m *memTokenStorage) DeleteToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.record = nil
	return nil
}

// memSessionStorage - in-memory SessionStorage с переключаемыми отказами
type memSessionStorage struct {
	mu       sync.Mutex
	record   *storage.SessionRecord
	failSave bool
	failGet  bool
	deletes  int
}

func (m *memSessionStorage) SaveSession(_ context.Context, record *storage.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	cp := *record
	m.record = &cp
	return nil
}

func (m *memSessionStorage) GetSession(_ context.Context) (*storage.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("read error")
	}
	if m.record == nil {
		return nil, storage.ErrSessionNotFound
	}
	cp := *m.record
	return &cp, nil
}

func (m *memSessionStorage) DeleteSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.record = nil
	return nil
}

// apiMock реализует clientapi.ClientAPI через подменяемые функции
type apiMock struct {
	registerFn  func(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	verifyFn    func(ctx context.Context, req api.VerifyEmailRequest) (*api.AuthResponse, error)
	resendOTPFn func(ctx context.Context, req api.ResendOTPRequest) (*api.AuthResponse, error)
	loginFn     func(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	forgotFn    func(ctx context.Context, req api.ForgotPasswordRequest) (*api.AuthResponse, error)
	resetFn     func(ctx context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error)
	meFn        func(ctx context.Context) (*api.AuthResponse, error)
	logoutFn    func(ctx context.Context) error
}

func (m *apiMock) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	return m.registerFn(ctx, req)
}

func (m *apiMock) VerifyEmail(ctx context.Context, req api.VerifyEmailRequest) (*api.AuthResponse, error) {
	return m.verifyFn(ctx, req)
}

func (m *apiMock) ResendVerificationOTP(ctx context.Context, req api.ResendOTPRequest) (*api.AuthResponse, error) {
	return m.resendOTPFn(ctx, req)
}

func (m *apiMock) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	return m.loginFn(ctx, req)
}

func (m *apiMock) ForgotPassword(ctx context.Context, req api.ForgotPasswordRequest) (*api.AuthResponse, error) {
	return m.forgotFn(ctx, req)
}

func (m *apiMock) ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error) {
	return m.resetFn(ctx, req)
}

func (m *apiMock) Me(ctx context.Context) (*api.AuthResponse, error) {
	return m.meFn(ctx)
}

func (m *apiMock) Logout(ctx context.Context) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
