package sqlconn

import (
	"errors"
	"fmt"
)

// Ошибки канала команд.
var (
	// ErrClosed — соединение уже закрыто.
	ErrClosed = errors.New("connection closed")

	// ErrUnknownDriver — драйвер не поддерживается.
	ErrUnknownDriver = errors.New("unknown cluster driver")

	// ErrEmptyStatement — пустой statement.
	ErrEmptyStatement = errors.New("empty statement")
)

// CommandError — кластер отклонил statement.
//
// Message — текст ошибки сервера; по нему проверяются конфликты
// (таксономия ошибок продукта строится на сообщениях, а не на кодах).
type CommandError struct {
	SQL     string // отклонённый statement
	Code    string // код ошибки сервера (SQLSTATE или hex-код REST)
	Message string // текст ошибки сервера
}

// Error реализует интерфейс error.
func (e *CommandError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.SQL, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.SQL, e.Message)
}

// AsCommandError извлекает *CommandError из цепочки ошибок.
func AsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}
