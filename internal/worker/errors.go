package worker

import (
	"errors"
	"fmt"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// Ошибки воркера.
var (
	// ErrEmptyChain — не передано ни одной операции.
	ErrEmptyChain = errors.New("empty operation chain")

	// ErrChainAborted — звено цепочки не завершилось, следующие не отправлены.
	ErrChainAborted = errors.New("operation chain aborted")

	// ErrWorkerPanic — горутина воркера упала до завершения.
	ErrWorkerPanic = errors.New("worker panicked")
)

// IssueError — кластер отклонил statement при отправке
// (синтаксис, права, несуществующая цель).
type IssueError struct {
	Operation *domain.AdministrativeOperation
	Err       error
}

// Error реализует интерфейс error.
func (e *IssueError) Error() string {
	return fmt.Sprintf("issue %s: %v", e.Operation, e.Err)
}

// Unwrap возвращает причину.
func (e *IssueError) Unwrap() error {
	return e.Err
}

// AsIssueError извлекает *IssueError из цепочки ошибок.
func AsIssueError(err error) (*IssueError, bool) {
	var issueErr *IssueError
	if errors.As(err, &issueErr) {
		return issueErr, true
	}
	return nil, false
}
