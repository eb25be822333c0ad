package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/sliceops/sliceops/pkg/api"
)

// Пути auth endpoint'ов относительно baseURL
const (
	pathRegister       = "/api/v1/auth/register"
	pathVerifyEmail    = "/api/v1/auth/verify-email"
	pathResendOTP      = "/api/v1/auth/resend-verification-otp"
	pathLogin          = "/api/v1/auth/login"
	pathForgotPassword = "/api/v1/auth/forgot-password"
	pathResetPassword  = "/api/v1/auth/reset-password"
	pathMe             = "/api/v1/auth/me"
	pathRefresh        = "/api/v1/auth/refresh-token"
	pathLogout         = "/api/v1/auth/logout"
)

const (
	// requestTimeout - фиксированный таймаут на все запросы, включая refresh
	requestTimeout = 30 * time.Second

	// maxRefreshAttempts - максимум последовательных попыток refresh до
	// принудительного завершения сессии
	maxRefreshAttempts = 3
)

// authPaths - endpoint'ы, 401 от которых НЕ запускает refresh.
// Сюда входит и сам refresh endpoint - иначе возможна бесконечная рекурсия.
var authPaths = map[string]struct{}{
	pathRegister:       {},
	pathVerifyEmail:    {},
	pathResendOTP:      {},
	pathLogin:          {},
	pathForgotPassword: {},
	pathResetPassword:  {},
	pathRefresh:        {},
}

//go:generate moq -out tokensource_mock.go . TokenSource

// TokenSource abstracts where the client reads the current bearer token from
// and where refreshed tokens are written to. Implementations keep an in-memory
// mirror backed by encrypted durable storage.
type TokenSource interface {
	// Token returns the current bearer token, empty string if none
	Token(ctx context.Context) string

	// SetToken stores a new bearer token
	SetToken(ctx context.Context, token string)

	// ClearToken removes the stored token
	ClearToken(ctx context.Context)
}

// Client представляет HTTP клиент для взаимодействия с backend'ом платформы.
// Каждый исходящий запрос проходит request interceptor (подстановка bearer
// токена), каждый ответ - response interceptor (401 -> refresh -> retry).
type Client struct {
	httpClient       *http.Client
	baseURL          string
	tokens           TokenSource
	logger           *slog.Logger
	onSessionExpired func()

	// refreshGroup сериализует refresh: при шторме одновременных 401
	// выполняется ровно один сетевой вызов, остальные ждут его результат
	refreshGroup singleflight.Group

	// refreshAttempts - счетчик последовательных попыток refresh.
	// Сбрасывается только успешным refresh или login.
	refreshAttempts atomic.Int32
}

// NewClient создает новый API клиент
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetSessionExpiredHook устанавливает callback, вызываемый при исчерпании
// попыток refresh. Аналог принудительного редиректа на страницу логина.
func (c *Client) SetSessionExpiredHook(fn func()) {
	c.onSessionExpired = fn
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, pathRegister, req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// VerifyEmail подтверждает email по OTP коду
func (c *Client) VerifyEmail(ctx context.Context, req api.VerifyEmailRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, pathVerifyEmail, req, &resp); err != nil {
		return nil, fmt.Errorf("verify email request failed: %w", err)
	}
	return &resp, nil
}

// ResendVerificationOTP повторно отправляет OTP код подтверждения
func (c *Client) ResendVerificationOTP(ctx context.Context, req api.ResendOTPRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, pathResendOTP, req, &resp); err != nil {
		return nil, fmt.Errorf("resend otp request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя.
// Успешный login сбрасывает счетчик попыток refresh.
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, pathLogin, req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if resp.Success {
		c.refreshAttempts.Store(0)
	}
	return &resp, nil
}

// ForgotPassword запрашивает OTP код для восстановления пароля
func (c *Client) ForgotPassword(ctx context.Context, req api.ForgotPasswordRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, pathForgotPassword, req, &resp); err != nil {
		return nil, fmt.Errorf("forgot password request failed: %w", err)
	}
	return &resp, nil
}

// ResetPassword сбрасывает пароль по OTP коду
func (c *Client) ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, pathResetPassword, req, &resp); err != nil {
		return nil, fmt.Errorf("reset password request failed: %w", err)
	}
	return &resp, nil
}

// Me возвращает identity текущего пользователя
func (c *Client) Me(ctx context.Context) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodGet, pathMe, nil, &resp); err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

// Logout уведомляет сервер о выходе из системы
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, pathLogout, nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос с response interceptor'ом:
// 401 от не-auth endpoint'а запускает refresh и один повтор запроса.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	err := c.do(ctx, method, path, body, result)
	if err == nil {
		return nil
	}

	// Network-ошибка (ответа нет) никогда не запускает refresh
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	// 401 от самих auth endpoint'ов не восстанавливаем - иначе рекурсия
	if _, isAuth := authPaths[path]; isAuth {
		return err
	}

	if _, refreshErr := c.refresh(ctx); refreshErr != nil {
		// Пробрасываем исходную ошибку запроса, как и веб-консоль
		return err
	}

	// Повторяем исходный запрос один раз с новым токеном.
	// Повторный 401 уже не восстанавливается.
	return c.do(ctx, method, path, body, result)
}

// refresh выполняет single-flight обновление токена. Одновременные вызовы
// разделяют один сетевой запрос и его результат: все либо получают новый
// токен, либо все получают одну и ту же ошибку.
func (c *Client) refresh(ctx context.Context) (string, error) {
	// Лимит попыток проверяется до постановки в очередь
	if c.refreshAttempts.Load() >= maxRefreshAttempts {
		c.expireSession(ctx)
		return "", ErrRefreshExhausted
	}

	token, err, shared := c.refreshGroup.Do("refresh-token", func() (any, error) {
		c.refreshAttempts.Add(1)

		// Отвязываем refresh от cancellation исходного запроса: его результат
		// разделяют и другие ожидающие запросы
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
		defer cancel()

		var resp api.AuthResponse
		if err := c.do(refreshCtx, http.MethodPost, pathRefresh, nil, &resp); err != nil {
			return nil, err
		}

		newToken := resp.Token()
		if !resp.Success || newToken == "" {
			return nil, fmt.Errorf("refresh response missing token")
		}

		c.tokens.SetToken(ctx, newToken)
		c.refreshAttempts.Store(0)

		c.logger.Debug("token refreshed")
		return newToken, nil
	})

	if err != nil {
		c.logger.Warn("token refresh failed", "error", err, "shared", shared)
		// Неудачный refresh всегда очищает сохраненный токен
		c.tokens.ClearToken(ctx)
		if c.refreshAttempts.Load() >= maxRefreshAttempts {
			c.expireSession(ctx)
		}
		return "", err
	}

	return token.(string), nil
}

// expireSession принудительно завершает сессию: токен очищается, приложение
// уведомляется. Счетчик попыток НЕ сбрасывается - его сбросит только
// успешный login (иначе следующий же 401 снова запустил бы refresh).
func (c *Client) expireSession(ctx context.Context) {
	c.tokens.ClearToken(ctx)
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// do выполняет один HTTP запрос с request interceptor'ом (bearer token,
// Accept, X-Request-ID) без какой-либо refresh логики
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Подставляем bearer token, если он есть. Отсутствие токена не ошибка:
	// запрос уходит неаутентифицированным, отклонять его - дело сервера.
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Не-2xx: извлекаем детали из envelope тела
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var envelope api.AuthResponse
		if unmarshalErr := json.Unmarshal(respBody, &envelope); unmarshalErr == nil {
			apiErr.Message = envelope.Message
			apiErr.FieldErrors = envelope.Errors
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
