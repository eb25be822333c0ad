package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sliceops/sliceops/internal/models"
	"github.com/sliceops/sliceops/pkg/api"
)

// memoryTokens implements TokenSource for testing
type memoryTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memoryTokens) Token(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memoryTokens) SetToken(ctx context.Context, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func (m *memoryTokens) ClearToken(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, resp api.AuthResponse) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func TestNewClient(t *testing.T) {
	tokens := &memoryTokens{}
	client := NewClient("http://localhost:8080", tokens, testLogger())

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(t, w, http.StatusOK, api.AuthResponse{Success: true, Data: &api.AuthData{User: &models.Identity{ID: "u1"}}})
	}))
	defer server.Close()

	tokens := &memoryTokens{token: "tok123"}
	client := NewClient(server.URL, tokens, testLogger())

	resp, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User().ID)
}

func TestClient_NoToken_SendsUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, api.AuthResponse{Success: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, &memoryTokens{}, testLogger())

	_, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
}

func TestClient_Login_ResetsRefreshAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, api.AuthResponse{Success: true, Data: &api.AuthData{Token: "tok123"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, &memoryTokens{}, testLogger())
	client.refreshAttempts.Store(2)

	resp, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "tok123", resp.Token())
	assert.Equal(t, int32(0), client.refreshAttempts.Load())
}

func TestClient_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnprocessableEntity, api.AuthResponse{
			Success: false,
			Message: "validation failed",
			Errors:  map[string][]string{"email": {"email format is invalid"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, &memoryTokens{}, testLogger())

	_, err := client.Register(context.Background(), api.RegisterRequest{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Equal(t, []string{"email format is invalid"}, apiErr.FieldErrors["email"])
}

func TestClient_RefreshAndRetry(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pathMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-token" {
			writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "token expired"})
			return
		}
		writeJSON(t, w, http.StatusOK, api.AuthResponse{Success: true, Data: &api.AuthData{User: &models.Identity{ID: "u1"}}})
	})
	mux.HandleFunc("POST "+pathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(t, w, http.StatusOK, api.AuthResponse{Success: true, Data: &api.AuthData{Token: "new-token"}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &memoryTokens{token: "stale-token"}
	client := NewClient(server.URL, tokens, testLogger())

	resp, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User().ID)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, "new-token", tokens.Token(context.Background()))
}

func TestClient_SingleFlightRefresh(t *testing.T) {
	const concurrency = 8

	var refreshCalls atomic.Int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pathMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-token" {
			writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "token expired"})
			return
		}
		writeJSON(t, w, http.StatusOK, api.AuthResponse{Success: true, Data: &api.AuthData{User: &models.Identity{ID: "u1"}}})
	})
	mux.HandleFunc("POST "+pathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		// Держим refresh открытым, пока все конкурирующие запросы не получат 401
		<-release
		writeJSON(t, w, http.StatusOK, api.AuthResponse{Success: true, Data: &api.AuthData{Token: "new-token"}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &memoryTokens{token: "stale-token"}
	client := NewClient(server.URL, tokens, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Me(context.Background())
		}(i)
	}

	// Даем всем горутинам время упереться в in-flight refresh
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	// Ровно один вызов refresh endpoint'а, все запросы завершились успешно
	assert.Equal(t, int32(1), refreshCalls.Load())
	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
}

func TestClient_RefreshFailure_AllRejected(t *testing.T) {
	const concurrency = 4

	var refreshCalls atomic.Int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pathMe, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "token expired"})
	})
	mux.HandleFunc("POST "+pathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		<-release
		writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "refresh token expired"})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &memoryTokens{token: "stale-token"}
	client := NewClient(server.URL, tokens, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Me(context.Background())
		}(i)
	}

	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load())
	for i, err := range errs {
		assert.Error(t, err, "request %d", i)
	}

	// Неудачный refresh очистил сохраненный токен
	assert.Empty(t, tokens.Token(context.Background()))
}

func TestClient_RefreshExhaustion(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pathMe, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "token expired"})
	})
	mux.HandleFunc("POST "+pathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "refresh token expired"})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &memoryTokens{token: "stale-token"}
	client := NewClient(server.URL, tokens, testLogger())

	var expired atomic.Int32
	client.SetSessionExpiredHook(func() { expired.Add(1) })

	// Каждый запрос проваливается и тратит одну попытку refresh
	for i := 0; i < 5; i++ {
		tokens.SetToken(context.Background(), "stale-token")
		_, err := client.Me(context.Background())
		require.Error(t, err)
	}

	// Ровно maxRefreshAttempts сетевых вызовов refresh, дальше - отказ без сети
	assert.Equal(t, int32(maxRefreshAttempts), refreshCalls.Load())
	assert.Empty(t, tokens.Token(context.Background()))
	assert.GreaterOrEqual(t, expired.Load(), int32(1))

	// Успешный login снова разрешает refresh
	client.refreshAttempts.Store(0)
	tokens.SetToken(context.Background(), "stale-token")
	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(maxRefreshAttempts+1), refreshCalls.Load())
}

func TestClient_NoRefreshOnAuthEndpoints(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathLogin, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "invalid credentials"})
	})
	mux.HandleFunc("POST "+pathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(t, w, http.StatusUnauthorized, api.AuthResponse{Success: false, Message: "refresh token expired"})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &memoryTokens{token: "tok"}
	client := NewClient(server.URL, tokens, testLogger())

	// 401 на login не запускает refresh
	_, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.com", Password: "bad"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestClient_NetworkError_NoRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	// Закрываем сервер сразу: любой запрос получит network-ошибку
	server.Close()

	tokens := &memoryTokens{token: "tok"}
	client := NewClient(server.URL, tokens, testLogger())

	_, err := client.Me(context.Background())
	require.Error(t, err)

	// Network-ошибка не нормализуется в *Error и не трогает токен
	var apiErr *Error
	assert.False(t, IsUnauthorized(err))
	assert.NotErrorAs(t, err, &apiErr)
	assert.Equal(t, "tok", tokens.Token(context.Background()))
}
