package storage

import (
	"context"

	"github.com/sliceops/sliceops/internal/models"
)

// IdentityStorage собирает авторизационный профиль пользователя из RBAC
// таблиц: роли с вложенными permissions, прямые permissions, доступные
// пиццерии и агрегированный summary.
type IdentityStorage interface {
	// GetIdentity assembles the full identity for the user.
	// Returns ErrUserNotFound if user doesn't exist.
	GetIdentity(ctx context.Context, userID string) (*models.Identity, error)

	// AssignRole привязывает глобальную роль к пользователю по имени роли.
	// Returns ErrRoleNotFound if role doesn't exist.
	AssignRole(ctx context.Context, userID, roleName string) error

	// AssignStore открывает пользователю доступ к пиццерии по её коду.
	// Returns ErrStoreNotFound if store doesn't exist.
	AssignStore(ctx context.Context, userID, storeCode string) error
}
