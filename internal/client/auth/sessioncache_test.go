package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sliceops/sliceops/internal/client/storage"
	"github.com/sliceops/sliceops/internal/models"
)

func testIdentity() *models.Identity {
	return &models.Identity{
		ID:    "u-1",
		Name:  "Olga",
		Email: "olga@sliceops.local",
		GlobalRoles: []models.Role{
			{ID: "r-1", Name: "store_manager", Permissions: []string{"orders.view", "orders.refund"}},
			{ID: "r-2", Name: "inventory_clerk", Permissions: []string{"inventory.view", "orders.view"}},
		},
		GlobalPermissions: []string{"reports.view"},
		AllPermissions:    []string{"orders.view", "orders.refund", "inventory.view", "reports.view"},
		Stores: []models.StoreRef{
			{ID: "s-1", Name: "Tverskaya", Code: "MSK-01"},
		},
		Summary: models.Summary{TotalStores: 1, TotalRoles: 2, TotalPermissions: 4},
	}
}

func newTestCache(st *memSessionStorage, now time.Time) *SessionCache {
	c := NewSessionCache(st, testLogger())
	c.now = func() time.Time { return now }
	return c
}

func TestSessionCache_SetAndGet(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTestCache(&memSessionStorage{}, now)
	ctx := context.Background()

	record := c.Set(ctx, testIdentity())
	require.NotNil(t, record)

	assert.Equal(t, now.Unix(), record.CachedAt)
	assert.Equal(t, now.Add(CacheTTL).Unix(), record.ExpiresAt)
	// roles_permissions вычисляется из ролей при записи, без дубликатов
	assert.Equal(t, []string{"orders.view", "orders.refund", "inventory.view"}, record.RolesPermissions)

	got := c.Get(ctx)
	require.NotNil(t, got)
	assert.Equal(t, record.AllPermissions, got.AllPermissions)
	assert.Equal(t, record.Stores, got.Stores)
	assert.True(t, c.IsValid(ctx))
}

func TestSessionCache_SetNilIdentity(t *testing.T) {
	c := newTestCache(&memSessionStorage{}, time.Now())

	assert.Nil(t, c.Set(context.Background(), nil))
}

func TestSessionCache_GetEvictsExpired(t *testing.T) {
	st := &memSessionStorage{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTestCache(st, now)
	ctx := context.Background()

	c.Set(ctx, testIdentity())

	c.now = func() time.Time { return now.Add(CacheTTL + time.Second) }

	assert.Nil(t, c.Get(ctx))
	assert.Nil(t, st.record, "expired record should be evicted")
	assert.False(t, c.IsValid(ctx))
}

func TestSessionCache_BoundaryNotExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTestCache(&memSessionStorage{}, now)
	ctx := context.Background()

	c.Set(ctx, testIdentity())

	// Ровно в момент expires_at запись еще валидна
	c.now = func() time.Time { return now.Add(CacheTTL) }
	assert.NotNil(t, c.Get(ctx))
	assert.True(t, c.IsValid(ctx))
}

func TestSessionCache_IsValidDoesNotEvict(t *testing.T) {
	st := &memSessionStorage{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTestCache(st, now)
	ctx := context.Background()

	c.Set(ctx, testIdentity())
	c.now = func() time.Time { return now.Add(CacheTTL + time.Hour) }

	assert.False(t, c.IsValid(ctx))
	assert.NotNil(t, st.record, "IsValid must not mutate storage")
}

func TestSessionCache_ReadFailureDiscards(t *testing.T) {
	st := &memSessionStorage{failGet: true}
	c := newTestCache(st, time.Now())

	assert.Nil(t, c.Get(context.Background()))
	assert.Equal(t, 1, st.deletes)
}

func TestSessionCache_ClearIsIdempotent(t *testing.T) {
	st := &memSessionStorage{}
	c := newTestCache(st, time.Now())
	ctx := context.Background()

	c.Set(ctx, testIdentity())
	c.Clear(ctx)
	c.Clear(ctx)

	assert.Nil(t, c.Get(ctx))
}

func TestSessionCache_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTestCache(&memSessionStorage{}, now)
	ctx := context.Background()

	_, ok := c.Expiry(ctx)
	assert.False(t, ok)

	c.Set(ctx, testIdentity())

	expiry, ok := c.Expiry(ctx)
	require.True(t, ok)
	assert.Equal(t, now.Add(CacheTTL).Unix(), expiry.Unix())
}

func TestSessionCache_ExtendPushesOnlyExpiry(t *testing.T) {
	st := &memSessionStorage{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := newTestCache(st, now)
	ctx := context.Background()

	c.Set(ctx, testIdentity())

	later := now.Add(20 * time.Minute)
	c.now = func() time.Time { return later }
	c.Extend(ctx)

	record := c.Get(ctx)
	require.NotNil(t, record)
	assert.Equal(t, now.Unix(), record.CachedAt, "cached_at must not change on extend")
	assert.Equal(t, later.Add(CacheTTL).Unix(), record.ExpiresAt)
}

func TestSessionCache_ExtendWithoutRecordIsNoop(t *testing.T) {
	st := &memSessionStorage{}
	c := newTestCache(st, time.Now())

	c.Extend(context.Background())

	assert.Nil(t, st.record)
}

func TestSessionCache_PersistFailureStillReturnsRecord(t *testing.T) {
	st := &memSessionStorage{failSave: true}
	c := newTestCache(st, time.Now())

	record := c.Set(context.Background(), testIdentity())

	require.NotNil(t, record, "caller keeps the in-memory record even if persist fails")
	_, err := st.GetSession(context.Background())
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}
