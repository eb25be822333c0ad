package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that refresh token record was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrRoleNotFound indicates that role was not found
	ErrRoleNotFound = errors.New("role not found")

	// ErrStoreNotFound indicates that store was not found
	ErrStoreNotFound = errors.New("store not found")
)
