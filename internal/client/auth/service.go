package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	clientapi "github.com/sliceops/sliceops/internal/client/api"
	"github.com/sliceops/sliceops/internal/client/storage"
	"github.com/sliceops/sliceops/internal/models"
	"github.com/sliceops/sliceops/internal/validation"
	pkgapi "github.com/sliceops/sliceops/pkg/api"
)

// State представляет состояние сессии
type State int

const (
	// StateUnauthenticated - начальное состояние, токена нет
	StateUnauthenticated State = iota
	// StateAuthenticated - есть токен (identity может быть ещё не загружена)
	StateAuthenticated
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// RegistrationStep представляет шаг процесса регистрации:
// register -> verify -> completed
type RegistrationStep int

const (
	// StepRegister - начальный шаг, данные ещё не отправлены
	StepRegister RegistrationStep = iota
	// StepVerify - регистрация принята, ожидается подтверждение OTP
	StepVerify
	// StepCompleted - email подтверждён, регистрация завершена
	StepCompleted
)

// String implements fmt.Stringer
func (s RegistrationStep) String() string {
	switch s {
	case StepVerify:
		return "verify"
	case StepCompleted:
		return "completed"
	default:
		return "register"
	}
}

// Service - оркеструющий слой сессии: login, logout, регистрация,
// загрузка профиля, инициализация при старте. Владеет in-memory identity,
// делегируя хранение TokenStore и SessionCache. Состояние сессии
// наблюдаемо через Subscribe.
type Service struct {
	api    clientapi.ClientAPI
	tokens *TokenStore
	cache  *SessionCache
	logger *slog.Logger

	mu          sync.RWMutex
	identity    *models.Identity
	snapshot    *storage.SessionRecord // in-memory копия последней записи кеша
	state       State
	regStep     RegistrationStep
	initialized bool
	subs        map[int]func(State)
	nextSubID   int
}

// NewService создает новый сервис сессии
func NewService(apiClient clientapi.ClientAPI, tokens *TokenStore, cache *SessionCache, logger *slog.Logger) *Service {
	return &Service{
		api:    apiClient,
		tokens: tokens,
		cache:  cache,
		logger: logger,
		subs:   make(map[int]func(State)),
	}
}

// Initialize восстанавливает сессию из локального хранилища при старте.
// Идемпотентна: повторные вызовы после первого - no-op, сама себя никогда
// не перезапускает.
//
// Нет токена -> кеш очищается, состояние unauthenticated.
// Токен + валидный кеш -> authenticated, частичная identity из снимка
// (name/email пусты до загрузки профиля).
// Токен без кеша -> authenticated с незагруженной identity; вызывающий
// должен отдельно запросить профиль. Сетевых вызовов здесь нет.
func (s *Service) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	token := s.tokens.Token(ctx)
	if token == "" {
		s.cache.Clear(ctx)
		s.setSession(nil, nil, StateUnauthenticated)
		s.logger.Debug("initialized without token")
		return
	}

	if record := s.cache.Get(ctx); record != nil {
		s.setSession(identityFromSnapshot(record), record, StateAuthenticated)
		s.logger.Debug("initialized from session cache")
		return
	}

	// Токен есть, кеша нет: аутентифицированы, identity загрузит caller
	s.setSession(nil, nil, StateAuthenticated)
	s.logger.Debug("initialized with token, identity not loaded")
}

// Login выполняет аутентификацию. При успехе сохраняет токен и строит
// новую запись session cache. При отказе (success:false или ошибка)
// никакое сохранённое состояние не мутируется.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	resp, err := s.api.Login(ctx, pkgapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !resp.Success {
		return responseError("login failed", resp)
	}

	token := resp.Token()
	user := resp.User()
	if token == "" || user == nil {
		return fmt.Errorf("login response missing token or user")
	}

	s.tokens.SetToken(ctx, token)
	record := s.cache.Set(ctx, user)
	s.setSession(user, record, StateAuthenticated)

	s.logger.Info("logged in", "user_id", user.ID)
	return nil
}

// Logout выполняет выход. Сервер уведомляется best-effort: локальное
// состояние очищается независимо от его доступности.
func (s *Service) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		// Не прерываем процесс, если сервер недоступен
		s.logger.Warn("failed to logout on server", "error", err)
	}

	s.tokens.ClearToken(ctx)
	s.cache.Clear(ctx)
	s.setSession(nil, nil, StateUnauthenticated)

	s.logger.Info("logged out")
}

// Register отправляет данные регистрации. Успех переводит шаг регистрации
// register -> verify. Токен и кеш не трогаются.
func (s *Service) Register(ctx context.Context, name, email, password, passwordConfirmation string) error {
	if err := validation.ValidateName(name); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}
	if password != passwordConfirmation {
		return fmt.Errorf("password confirmation does not match")
	}

	resp, err := s.api.Register(ctx, pkgapi.RegisterRequest{
		Name:                 name,
		Email:                email,
		Password:             password,
		PasswordConfirmation: passwordConfirmation,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	if !resp.Success {
		return responseError("registration failed", resp)
	}

	s.mu.Lock()
	s.regStep = StepVerify
	s.mu.Unlock()

	return nil
}

// VerifyEmailOTP подтверждает email по OTP коду. Успех переводит шаг
// регистрации verify -> completed.
func (s *Service) VerifyEmailOTP(ctx context.Context, email, otp string) error {
	if err := validation.ValidateOTP(otp); err != nil {
		return fmt.Errorf("invalid otp: %w", err)
	}

	resp, err := s.api.VerifyEmail(ctx, pkgapi.VerifyEmailRequest{Email: email, OTP: otp})
	if err != nil {
		return fmt.Errorf("email verification failed: %w", err)
	}
	if !resp.Success {
		return responseError("email verification failed", resp)
	}

	s.mu.Lock()
	s.regStep = StepCompleted
	s.mu.Unlock()

	return nil
}

// ResendVerificationOTP повторно отправляет OTP код. Шаг регистрации
// не меняется.
func (s *Service) ResendVerificationOTP(ctx context.Context, email string) error {
	resp, err := s.api.ResendVerificationOTP(ctx, pkgapi.ResendOTPRequest{Email: email})
	if err != nil {
		return fmt.Errorf("resend otp failed: %w", err)
	}
	if !resp.Success {
		return responseError("resend otp failed", resp)
	}
	return nil
}

// ForgotPassword запрашивает OTP код восстановления пароля
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	resp, err := s.api.ForgotPassword(ctx, pkgapi.ForgotPasswordRequest{Email: email})
	if err != nil {
		return fmt.Errorf("forgot password failed: %w", err)
	}
	if !resp.Success {
		return responseError("forgot password failed", resp)
	}
	return nil
}

// ResetPassword сбрасывает пароль по OTP коду
func (s *Service) ResetPassword(ctx context.Context, email, password, passwordConfirmation, otp string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}
	if password != passwordConfirmation {
		return fmt.Errorf("password confirmation does not match")
	}
	if err := validation.ValidateOTP(otp); err != nil {
		return fmt.Errorf("invalid otp: %w", err)
	}

	resp, err := s.api.ResetPassword(ctx, pkgapi.ResetPasswordRequest{
		Email:                email,
		Password:             password,
		PasswordConfirmation: passwordConfirmation,
		OTP:                  otp,
	})
	if err != nil {
		return fmt.Errorf("reset password failed: %w", err)
	}
	if !resp.Success {
		return responseError("reset password failed", resp)
	}
	return nil
}

// FetchProfile загружает identity с сервера и пересоздаёт запись
// session cache. Токен не трогается.
func (s *Service) FetchProfile(ctx context.Context) (*models.Identity, error) {
	resp, err := s.api.Me(ctx)
	if err != nil {
		if clientapi.IsUnauthorized(err) || errors.Is(err, clientapi.ErrRefreshExhausted) {
			// 401 на профиле после исчерпания refresh означает конец сессии
			s.HandleSessionExpired()
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	user := resp.User()
	if !resp.Success || user == nil {
		return nil, responseError("failed to fetch profile", resp)
	}

	record := s.cache.Set(ctx, user)
	s.setSession(user, record, StateAuthenticated)

	return user, nil
}

// RefreshCacheData обновляет только запись session cache свежими данными
// профиля, не меняя текущую identity вызывающего. Токен не трогается.
func (s *Service) RefreshCacheData(ctx context.Context) error {
	resp, err := s.api.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh cache data: %w", err)
	}

	user := resp.User()
	if !resp.Success || user == nil {
		return responseError("failed to refresh cache data", resp)
	}

	record := s.cache.Set(ctx, user)

	s.mu.Lock()
	s.snapshot = record
	s.mu.Unlock()

	return nil
}

// ExtendSession продлевает срок жизни записи session cache без refetch
func (s *Service) ExtendSession(ctx context.Context) {
	s.cache.Extend(ctx)
}

// HandleSessionExpired вызывается при исчерпании попыток refresh.
// Подключается к api.Client через SetSessionExpiredHook.
func (s *Service) HandleSessionExpired() {
	ctx := context.Background()
	s.tokens.ClearToken(ctx)
	s.cache.Clear(ctx)
	s.setSession(nil, nil, StateUnauthenticated)

	s.logger.Warn("session expired, re-authentication required")
}

// State возвращает текущее состояние сессии
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether the session is authenticated
func (s *Service) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// IsInitialized reports whether Initialize has completed
func (s *Service) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Identity возвращает текущую identity или nil, если она не загружена
func (s *Service) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// RegistrationStep возвращает текущий шаг регистрации
func (s *Service) RegistrationStep() RegistrationStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regStep
}

// ResetRegistration принудительно сбрасывает шаг регистрации в начальный
func (s *Service) ResetRegistration() {
	s.mu.Lock()
	s.regStep = StepRegister
	s.mu.Unlock()
}

// Subscribe регистрирует callback на смену состояния сессии и возвращает
// функцию отписки. Подписчики вызываются синхронно после каждой смены.
func (s *Service) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// setSession атомарно обновляет identity/snapshot/state и уведомляет
// подписчиков, если состояние изменилось
func (s *Service) setSession(identity *models.Identity, snapshot *storage.SessionRecord, state State) {
	s.mu.Lock()
	changed := s.state != state
	s.identity = identity
	s.snapshot = snapshot
	s.state = state

	var subs []func(State)
	if changed {
		subs = make([]func(State), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// identityFromSnapshot восстанавливает частичную identity из записи кеша.
// Name/email в кеше нет - они остаются пустыми до загрузки профиля.
func identityFromSnapshot(record *storage.SessionRecord) *models.Identity {
	return &models.Identity{
		GlobalRoles:       record.GlobalRoles,
		GlobalPermissions: record.GlobalPermissions,
		AllPermissions:    record.AllPermissions,
		Stores:            record.Stores,
		Summary:           record.Summary,
	}
}

// responseError формирует ошибку из envelope с success:false
func responseError(prefix string, resp *pkgapi.AuthResponse) error {
	if resp.Message != "" {
		return fmt.Errorf("%s: %s", prefix, resp.Message)
	}
	return fmt.Errorf("%s", prefix)
}
