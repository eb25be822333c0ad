package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/sliceops/sliceops/internal/models"
	"github.com/sliceops/sliceops/internal/server/storage"
)

// GetIdentity assembles the full authorization profile of a user from the
// RBAC tables. AllPermissions - объединение прямых permissions и
// permissions, вложенных в роли, без дубликатов.
func (s *Storage) GetIdentity(ctx context.Context, userID string) (*models.Identity, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, err := s.userRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	direct, err := s.directPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	stores, err := s.userStores(ctx, userID)
	if err != nil {
		return nil, err
	}

	all := models.FlattenRolePermissions(roles)
	for _, perm := range direct {
		if !slices.Contains(all, perm) {
			all = append(all, perm)
		}
	}

	manageable := 0
	if slices.Contains(all, "users.manage") {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE id != ?`, userID).Scan(&manageable); err != nil {
			return nil, fmt.Errorf("failed to count manageable users: %w", err)
		}
	}

	return &models.Identity{
		ID:                user.ID,
		Name:              user.Name,
		Email:             user.Email,
		EmailVerifiedAt:   user.EmailVerifiedAt,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
		GlobalRoles:       roles,
		GlobalPermissions: direct,
		AllPermissions:    all,
		Stores:            stores,
		Summary: models.Summary{
			TotalStores:      len(stores),
			TotalRoles:       len(roles),
			TotalPermissions: len(all),
			ManageableUsers:  manageable,
		},
	}, nil
}

// userRoles возвращает глобальные роли пользователя с вложенными permissions
func (s *Storage) userRoles(ctx context.Context, userID string) ([]models.Role, error) {
	query := `
		SELECT r.id, r.name, r.description
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	roles := make([]models.Role, 0)
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	for i := range roles {
		perms, err := s.rolePermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}

	return roles, nil
}

func (s *Storage) rolePermissions(ctx context.Context, roleID string) ([]string, error) {
	query := `
		SELECT p.key
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.key
	`
	return s.queryPermissionKeys(ctx, query, roleID)
}

// directPermissions возвращает permissions, выданные пользователю напрямую
func (s *Storage) directPermissions(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT p.key
		FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = ?
		ORDER BY p.key
	`
	return s.queryPermissionKeys(ctx, query, userID)
}

func (s *Storage) queryPermissionKeys(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}

	return keys, nil
}

func (s *Storage) userStores(ctx context.Context, userID string) ([]models.StoreRef, error) {
	query := `
		SELECT s.id, s.name, s.code
		FROM stores s
		JOIN user_stores us ON us.store_id = s.id
		WHERE us.user_id = ?
		ORDER BY s.code
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stores: %w", err)
	}
	defer rows.Close()

	stores := make([]models.StoreRef, 0)
	for rows.Next() {
		var store models.StoreRef
		if err := rows.Scan(&store.ID, &store.Name, &store.Code); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stores: %w", err)
	}

	return stores, nil
}

// AssignRole привязывает глобальную роль к пользователю по имени роли
func (s *Storage) AssignRole(ctx context.Context, userID, roleName string) error {
	var roleID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = ?`, roleName).Scan(&roleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrRoleNotFound
		}
		return fmt.Errorf("failed to resolve role: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	return nil
}

// AssignStore открывает пользователю доступ к пиццерии по её коду
func (s *Storage) AssignStore(ctx context.Context, userID, storeCode string) error {
	var storeID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM stores WHERE code = ?`, storeCode).Scan(&storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrStoreNotFound
		}
		return fmt.Errorf("failed to resolve store: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_stores (user_id, store_id) VALUES (?, ?)`, userID, storeID)
	if err != nil {
		return fmt.Errorf("failed to assign store: %w", err)
	}

	return nil
}
