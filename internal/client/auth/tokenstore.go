package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	clientapi "github.com/sliceops/sliceops/internal/client/api"
	"github.com/sliceops/sliceops/internal/client/storage"
	"github.com/sliceops/sliceops/internal/crypto"
)

// TokenStore хранит текущий bearer token: in-memory зеркало для горячего
// пути запросов плюс зашифрованная durable запись в storage.
//
// Контракт fail-soft: ошибки storage (quota, повреждённый ciphertext,
// закрытая БД) логируются и поглощаются, наружу они не выходят. Отсутствие
// значения выражается пустой строкой, не ошибкой.
type TokenStore struct {
	storage storage.TokenStorage
	logger  *slog.Logger

	mu     sync.RWMutex
	cached string
	loaded bool
}

// Compile-time check that TokenStore implements api.TokenSource
var _ clientapi.TokenSource = (*TokenStore)(nil)

// NewTokenStore creates a new TokenStore over the given durable storage
func NewTokenStore(st storage.TokenStorage, logger *slog.Logger) *TokenStore {
	return &TokenStore{
		storage: st,
		logger:  logger,
	}
}

// SetToken шифрует токен и сохраняет его, перезаписывая предыдущий.
// Persist выполняется best-effort: при ошибке записи вызывающий продолжает
// работать с in-memory значением.
func (s *TokenStore) SetToken(ctx context.Context, token string) {
	if token == "" {
		s.ClearToken(ctx)
		return
	}

	s.mu.Lock()
	s.cached = token
	s.loaded = true
	s.mu.Unlock()

	ciphertext, err := crypto.EncryptAtRest(token)
	if err != nil {
		s.logger.Warn("failed to encrypt token for storage", "error", err)
		return
	}

	record := &storage.TokenRecord{
		Ciphertext: ciphertext,
		UpdatedAt:  time.Now().Unix(),
	}

	if err := s.storage.SaveToken(ctx, record); err != nil {
		s.logger.Warn("failed to persist token", "error", err)
	}
}

// Token возвращает текущий токен: сначала in-memory зеркало, затем
// durable storage. Пустая строка означает "токена нет".
func (s *TokenStore) Token(ctx context.Context) string {
	s.mu.RLock()
	if s.loaded {
		token := s.cached
		s.mu.RUnlock()
		return token
	}
	s.mu.RUnlock()

	token := s.loadFromStorage(ctx)

	s.mu.Lock()
	s.cached = token
	s.loaded = true
	s.mu.Unlock()

	return token
}

// ClearToken удаляет токен. Идемпотентна: удаление при пустом
// хранилище не ошибка.
func (s *TokenStore) ClearToken(ctx context.Context) {
	s.mu.Lock()
	s.cached = ""
	s.loaded = true
	s.mu.Unlock()

	if err := s.storage.DeleteToken(ctx); err != nil {
		s.logger.Warn("failed to delete stored token", "error", err)
	}
}

// HasValidToken проверяет, что сохранённый ciphertext существует и
// структурно расшифровывается. Валидность токена на сервере не проверяется.
func (s *TokenStore) HasValidToken(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// loadFromStorage читает и расшифровывает durable запись.
// Повреждённая запись удаляется и трактуется как отсутствие значения.
func (s *TokenStore) loadFromStorage(ctx context.Context) string {
	record, err := s.storage.GetToken(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrTokenNotFound) {
			s.logger.Warn("failed to read stored token", "error", err)
		}
		return ""
	}

	token := crypto.DecryptAtRest(record.Ciphertext)
	if token == "" {
		s.logger.Warn("stored token is corrupted, discarding")
		if err := s.storage.DeleteToken(ctx); err != nil {
			s.logger.Warn("failed to delete corrupted token", "error", err)
		}
	}

	return token
}
