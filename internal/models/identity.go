package models

import "time"

// Role представляет глобальную роль пользователя вместе с её permissions
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"` // permission keys, вложенные в роль
}

// StoreRef представляет ссылку на пиццерию, в рамках которой пользователь может действовать
type StoreRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"` // короткий код точки, например "MSK-01"
}

// Summary содержит агрегированные счетчики по правам пользователя
type Summary struct {
	TotalStores      int `json:"total_stores"`
	TotalRoles       int `json:"total_roles"`
	TotalPermissions int `json:"total_permissions"`
	ManageableUsers  int `json:"manageable_users"`
}

// Identity представляет текущего аутентифицированного пользователя
// вместе с его ролями, permissions и списком доступных пиццерий.
//
// AllPermissions — авторитетный набор для проверок доступа.
// GlobalPermissions и permissions внутри ролей — вспомогательные
// представления тех же грантов.
type Identity struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	GlobalRoles       []Role     `json:"global_roles"`
	GlobalPermissions []string   `json:"global_permissions"`
	AllPermissions    []string   `json:"all_permissions"`
	Stores            []StoreRef `json:"stores"`
	Summary           Summary    `json:"summary"`
}

// FlattenRolePermissions собирает permissions, вложенные в роли,
// в один плоский список без дубликатов с сохранением порядка
func FlattenRolePermissions(roles []Role) []string {
	seen := make(map[string]struct{})
	flat := make([]string, 0)
	for _, role := range roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm]; ok {
				continue
			}
			seen[perm] = struct{}{}
			flat = append(flat, perm)
		}
	}
	return flat
}
