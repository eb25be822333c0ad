package storage

import "errors"

// Common client storage errors
var (
	// ErrTokenNotFound indicates that no bearer token is stored
	ErrTokenNotFound = errors.New("token not found")

	// ErrSessionNotFound indicates that no session cache record is stored
	ErrSessionNotFound = errors.New("session cache record not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
