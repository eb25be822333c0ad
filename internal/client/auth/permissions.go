package auth

import "github.com/sliceops/sliceops/internal/models"

// Проверки доступа читают текущий снимок авторизации в памяти:
// предпочитается последняя запись session cache, при её отсутствии -
// загруженная identity. Хранилище отсюда не трогается.
//
// AllPermissions - авторитетный набор: permission, выданный напрямую или
// через любую роль, обязан в нём присутствовать.

// authzView - снимок данных авторизации, против которого идут проверки
type authzView struct {
	roles       []models.Role
	permissions []string
	stores      []models.StoreRef
}

// view выбирает источник данных авторизации под read lock
func (s *Service) view() authzView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot != nil {
		return authzView{
			roles:       s.snapshot.GlobalRoles,
			permissions: s.snapshot.AllPermissions,
			stores:      s.snapshot.Stores,
		}
	}
	if s.identity != nil {
		return authzView{
			roles:       s.identity.GlobalRoles,
			permissions: s.identity.AllPermissions,
			stores:      s.identity.Stores,
		}
	}
	return authzView{}
}

// HasPermission reports whether the current session holds the permission
func (s *Service) HasPermission(permission string) bool {
	return containsString(s.view().permissions, permission)
}

// HasAnyPermission reports whether at least one of the permissions is held.
// Пустой список -> false.
func (s *Service) HasAnyPermission(permissions ...string) bool {
	held := s.view().permissions
	for _, p := range permissions {
		if containsString(held, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission is held.
// Пустой список -> true (vacuous truth).
func (s *Service) HasAllPermissions(permissions ...string) bool {
	held := s.view().permissions
	for _, p := range permissions {
		if !containsString(held, p) {
			return false
		}
	}
	return true
}

// HasRole reports whether the current session holds the global role by name
func (s *Service) HasRole(role string) bool {
	return hasRoleName(s.view().roles, role)
}

// HasAnyRole reports whether at least one of the roles is held.
// Пустой список -> false.
func (s *Service) HasAnyRole(roles ...string) bool {
	held := s.view().roles
	for _, r := range roles {
		if hasRoleName(held, r) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether every role is held.
// Пустой список -> true.
func (s *Service) HasAllRoles(roles ...string) bool {
	held := s.view().roles
	for _, r := range roles {
		if !hasRoleName(held, r) {
			return false
		}
	}
	return true
}

// CanAccess - проверка для пунктов меню и экранов: достаточно иметь
// хотя бы одну из требуемых ролей ИЛИ хотя бы один из требуемых
// permissions. Оба списка пустые -> доступ открыт.
func (s *Service) CanAccess(roles []string, permissions []string) bool {
	if len(roles) == 0 && len(permissions) == 0 {
		return true
	}
	return s.HasAnyRole(roles...) || s.HasAnyPermission(permissions...)
}

// Stores возвращает список пиццерий, доступных текущей сессии
func (s *Service) Stores() []models.StoreRef {
	return s.view().stores
}

// HasStore reports whether the session has access to the store by ID or code
func (s *Service) HasStore(idOrCode string) bool {
	for _, st := range s.view().stores {
		if st.ID == idOrCode || st.Code == idOrCode {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func hasRoleName(roles []models.Role, name string) bool {
	for _, r := range roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
