package conflict

import (
	"errors"
	"fmt"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// Ошибки проверки.
var (
	// ErrEventNotObserved — проверка вызвана без полученного события.
	ErrEventNotObserved = errors.New("conflict asserted before sync event was observed")

	// ErrBlockingNotIssued — событие сработало, но blocking-операция не отправлена.
	ErrBlockingNotIssued = errors.New("blocking operation was not issued")

	// ErrUnexpectedSuccess — конфликтующая команда принята кластером.
	ErrUnexpectedSuccess = errors.New("conflicting command unexpectedly succeeded")

	// ErrMessageMismatch — команда отклонена с другим сообщением.
	ErrMessageMismatch = errors.New("conflict message mismatch")

	// ErrNotAccepted — после очистки транзакций команда всё ещё отклоняется.
	ErrNotAccepted = errors.New("command rejected after transactions cleared")
)

// AssertionError — нарушение инварианта взаимного исключения.
type AssertionError struct {
	Kind     domain.FailureKind
	Command  string
	Expected string
	Observed string
	Err      error
}

// Error реализует интерфейс error.
func (e *AssertionError) Error() string {
	switch e.Kind {
	case domain.FailureUnexpectedSuccess:
		return fmt.Sprintf("%s: expected error %q", e.Command, e.Expected)
	case domain.FailureNotAccepted:
		return fmt.Sprintf("%s: expected success, got %q", e.Command, e.Observed)
	default:
		return fmt.Sprintf("%s: expected error %q, got %q", e.Command, e.Expected, e.Observed)
	}
}

// Unwrap возвращает sentinel-ошибку вида нарушения.
func (e *AssertionError) Unwrap() error {
	return e.Err
}

// AsAssertionError извлекает *AssertionError из цепочки ошибок.
func AsAssertionError(err error) (*AssertionError, bool) {
	var aErr *AssertionError
	if errors.As(err, &aErr) {
		return aErr, true
	}
	return nil, false
}
