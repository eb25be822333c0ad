package storage

import (
	"context"

	"github.com/sliceops/sliceops/internal/models"
)

// TokenStorage defines interface for persisting the bearer token on client.
// This is the lowest storage layer - it works with raw data (already encrypted
// token) and doesn't perform any encryption/decryption itself.
type TokenStorage interface {
	// SaveToken stores the token record as-is (ciphertext, already encrypted).
	// Overwrites any previous record.
	SaveToken(ctx context.Context, record *TokenRecord) error

	// GetToken retrieves the stored token record as-is
	// Returns ErrTokenNotFound if no token is stored
	GetToken(ctx context.Context) (*TokenRecord, error)

	// DeleteToken removes the stored token record.
	// Deleting a missing record is a no-op, not an error.
	DeleteToken(ctx context.Context) error
}

// SessionStorage defines interface for the session cache record.
// Stored in an area separate from the token: the two have independent
// invalidation clocks (token lifetime vs cache TTL).
type SessionStorage interface {
	// SaveSession stores the session cache record, overwriting any previous one
	SaveSession(ctx context.Context, record *SessionRecord) error

	// GetSession retrieves the stored session cache record
	// Returns ErrSessionNotFound if no record is stored
	GetSession(ctx context.Context) (*SessionRecord, error)

	// DeleteSession removes the stored record.
	// Deleting a missing record is a no-op, not an error.
	DeleteSession(ctx context.Context) error
}

// TokenRecord represents the bearer token as persisted.
// Ciphertext is base64 of the AES-GCM encrypted token - plaintext never
// touches the storage layer.
type TokenRecord struct {
	Ciphertext string `json:"ciphertext"`
	UpdatedAt  int64  `json:"updated_at"` // unix seconds
}

// SessionRecord represents the cached authorization snapshot as persisted.
// RolesPermissions is computed from GlobalRoles at write time.
// Invariant at creation: ExpiresAt = CachedAt + TTL; Extend pushes only
// ExpiresAt forward.
type SessionRecord struct {
	GlobalRoles       []models.Role     `json:"global_roles"`
	RolesPermissions  []string          `json:"roles_permissions"`
	GlobalPermissions []string          `json:"global_permissions"`
	AllPermissions    []string          `json:"all_permissions"`
	Stores            []models.StoreRef `json:"stores"`
	Summary           models.Summary    `json:"summary"`
	CachedAt          int64             `json:"cached_at"`  // unix seconds
	ExpiresAt         int64             `json:"expires_at"` // unix seconds
}
