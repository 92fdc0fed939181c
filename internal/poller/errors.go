package poller

import "errors"

// Ошибки polling.
var (
	// ErrNegativeTimeout — отрицательный бюджет ожидания.
	ErrNegativeTimeout = errors.New("negative poll timeout")

	// ErrEmptyQuery — не задан introspection-запрос.
	ErrEmptyQuery = errors.New("empty introspection query")

	// ErrQueryFailed — introspection-запрос завершился ошибкой.
	ErrQueryFailed = errors.New("introspection query failed")
)
