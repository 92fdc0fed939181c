package syncevent

import "errors"

// Ошибки ожидания события.
var (
	// ErrTimeout — событие не сработало за отведённое время.
	ErrTimeout = errors.New("sync event wait timed out")

	// ErrAlreadyObserved — у события уже есть наблюдатель.
	ErrAlreadyObserved = errors.New("sync event already observed")
)
