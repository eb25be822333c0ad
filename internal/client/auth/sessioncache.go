package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sliceops/sliceops/internal/client/storage"
	"github.com/sliceops/sliceops/internal/models"
)

// CacheTTL - срок жизни записи session cache.
// TTL кеша короткий и независим от срока жизни токена: истёкший кеш не
// означает истёкший токен, и наоборот.
const CacheTTL = 30 * time.Minute

// SessionCache хранит производный снимок авторизационных данных
// пользователя (роли, permissions, список пиццерий), чтобы не запрашивать
// профиль на каждом старте. Тот же fail-soft контракт, что и у TokenStore:
// ошибки storage поглощаются, истёкшая или повреждённая запись никогда не
// отдаётся вызывающему.
type SessionCache struct {
	storage storage.SessionStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionCache creates a new SessionCache over the given storage
func NewSessionCache(st storage.SessionStorage, logger *slog.Logger) *SessionCache {
	return &SessionCache{
		storage: st,
		logger:  logger,
		now:     time.Now,
	}
}

// Set строит запись кеша из identity и сохраняет её.
// roles_permissions вычисляется из ролей при записи;
// cached_at = now, expires_at = now + CacheTTL.
func (c *SessionCache) Set(ctx context.Context, identity *models.Identity) *storage.SessionRecord {
	if identity == nil {
		return nil
	}

	now := c.now()
	record := &storage.SessionRecord{
		GlobalRoles:       identity.GlobalRoles,
		RolesPermissions:  models.FlattenRolePermissions(identity.GlobalRoles),
		GlobalPermissions: identity.GlobalPermissions,
		AllPermissions:    identity.AllPermissions,
		Stores:            identity.Stores,
		Summary:           identity.Summary,
		CachedAt:          now.Unix(),
		ExpiresAt:         now.Add(CacheTTL).Unix(),
	}

	if err := c.storage.SaveSession(ctx, record); err != nil {
		c.logger.Warn("failed to persist session cache", "error", err)
	}

	return record
}

// Get возвращает сохранённый снимок или nil. Истёкшая или повреждённая
// запись удаляется как побочный эффект чтения - вызывающий никогда не
// видит устаревший снимок.
func (c *SessionCache) Get(ctx context.Context) *storage.SessionRecord {
	record, err := c.storage.GetSession(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			c.logger.Warn("failed to read session cache, discarding", "error", err)
			c.Clear(ctx)
		}
		return nil
	}

	if c.now().Unix() > record.ExpiresAt {
		c.logger.Debug("session cache expired, discarding")
		c.Clear(ctx)
		return nil
	}

	return record
}

// Clear безусловно удаляет запись кеша. Идемпотентна.
func (c *SessionCache) Clear(ctx context.Context) {
	if err := c.storage.DeleteSession(ctx); err != nil {
		c.logger.Warn("failed to delete session cache", "error", err)
	}
}

// IsValid проверяет срок годности записи, не удаляя её.
// Для вызывающих, которым нужна только проба валидности без мутации.
func (c *SessionCache) IsValid(ctx context.Context) bool {
	record, err := c.storage.GetSession(ctx)
	if err != nil {
		return false
	}
	return c.now().Unix() <= record.ExpiresAt
}

// Expiry возвращает момент истечения записи кеша
func (c *SessionCache) Expiry(ctx context.Context) (time.Time, bool) {
	record, err := c.storage.GetSession(ctx)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(record.ExpiresAt, 0), true
}

// Extend переписывает только expires_at = now + CacheTTL, не трогая
// cached_at и полезную нагрузку. Если записи нет - no-op.
// Используется, чтобы держать кеш активной сессии живым без refetch.
func (c *SessionCache) Extend(ctx context.Context) {
	record, err := c.storage.GetSession(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			c.logger.Warn("failed to read session cache for extend", "error", err)
		}
		return
	}

	record.ExpiresAt = c.now().Add(CacheTTL).Unix()

	if err := c.storage.SaveSession(ctx, record); err != nil {
		c.logger.Warn("failed to extend session cache", "error", err)
	}
}
