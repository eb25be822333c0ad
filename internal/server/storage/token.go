package storage

import (
	"context"

	"github.com/sliceops/sliceops/internal/models"
)

// TokenStorage defines interface for refresh token record persistence.
// Records are keyed by the jti of the issued access token.
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token record
	// If record with same ID exists, it will be replaced
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves refresh token record by jti
	// Returns ErrTokenNotFound if record doesn't exist
	GetRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error)

	// DeleteRefreshToken deletes refresh token record by jti
	// Returns ErrTokenNotFound if record doesn't exist
	DeleteRefreshToken(ctx context.Context, id string) error

	// DeleteUserTokens deletes all refresh token records for a user
	// Returns number of deleted records
	DeleteUserTokens(ctx context.Context, userID string) (int, error)

	// DeleteExpiredTokens removes all expired records
	// Returns number of deleted records
	DeleteExpiredTokens(ctx context.Context) (int, error)
}
