package conflict

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
	"github.com/shaiso/conflictsuite/internal/syncevent"
	"github.com/shaiso/conflictsuite/internal/telemetry"
)

// Asserter выполняет проверки по соединению coordinator-а.
type Asserter struct {
	conn   sqlconn.Conn
	logger *slog.Logger
}

// NewAsserter создаёт Asserter.
func NewAsserter(conn sqlconn.Conn, logger *slog.Logger) *Asserter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Asserter{conn: conn, logger: logger}
}

// AssertConflict отправляет command и требует отказа с сообщением, подходящим под m.
//
// Возвращает:
//   - Observed, nil — команда отклонена ожидаемо
//   - ErrEventNotObserved / ErrBlockingNotIssued — нарушен порядок сценария
//   - *AssertionError — команда принята или отклонена с другим сообщением
//   - прочая ошибка — сбой соединения
func (a *Asserter) AssertConflict(ctx context.Context, fired syncevent.Fired, command string, m Matcher) (string, error) {
	if !fired.Valid() {
		return "", ErrEventNotObserved
	}
	if err := fired.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBlockingNotIssued, err)
	}

	logger := telemetry.FromContext(ctx, a.logger)

	err := a.conn.Exec(ctx, command)
	if err == nil {
		logger.Error("conflicting command accepted", "command", command, "expected", m.Expected())
		return "", &AssertionError{
			Kind:     domain.FailureUnexpectedSuccess,
			Command:  command,
			Expected: m.Expected(),
			Err:      ErrUnexpectedSuccess,
		}
	}

	cmdErr, ok := sqlconn.AsCommandError(err)
	if !ok {
		return "", fmt.Errorf("execute %q: %w", command, err)
	}

	if !m.Match(cmdErr.Message) {
		logger.Error("conflict message mismatch",
			"command", command,
			"expected", m.Expected(),
			"observed", cmdErr.Message,
		)
		return cmdErr.Message, &AssertionError{
			Kind:     domain.FailureMessageMismatch,
			Command:  command,
			Expected: m.Expected(),
			Observed: cmdErr.Message,
			Err:      ErrMessageMismatch,
		}
	}

	logger.Info("conflict rejected as expected", "command", command, "message", cmdErr.Message)
	return cmdErr.Message, nil
}

// AssertAccepted требует, чтобы command выполнилась успешно
// (после того как все транзакции завершились).
func (a *Asserter) AssertAccepted(ctx context.Context, command string) error {
	err := a.conn.Exec(ctx, command)
	if err == nil {
		return nil
	}

	cmdErr, ok := sqlconn.AsCommandError(err)
	if !ok {
		return fmt.Errorf("execute %q: %w", command, err)
	}
	return &AssertionError{
		Kind:     domain.FailureNotAccepted,
		Command:  command,
		Observed: cmdErr.Message,
		Err:      ErrNotAccepted,
	}
}
