package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRefreshExhausted возвращается, когда лимит попыток обновления токена
// исчерпан и сессия принудительно завершена
var ErrRefreshExhausted = errors.New("token refresh attempts exhausted")

// Error представляет нормализованную ошибку HTTP ответа.
// Network-ошибки (ответ не получен вовсе) НИКОГДА не заворачиваются в Error -
// они остаются обычными wrapped ошибками транспорта. Именно наличие *Error
// отличает "сервер ответил отказом" от "сети нет".
type Error struct {
	Status      int                 // HTTP статус код
	Message     string              // сообщение из envelope ответа
	FieldErrors map[string][]string // field -> messages при 422
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsUnauthorized reports whether err is a server response with status 401
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsValidation reports whether err is a server response with status 422
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity
}
