package domain

// OperationState — наблюдаемое снаружи состояние административной операции.
//
// Жизненный цикл:
//
//	UNISSUED → ISSUED → ACTIVE → COMPLETED
//	                          ↘ TIMED_OUT (бюджет polling исчерпан, job продолжает жить на сервере)
type OperationState string

const (
	// OperationStateUnissued — statement ещё не отправлен (или отклонён при отправке).
	OperationStateUnissued OperationState = "UNISSUED"

	// OperationStateIssued — statement принят кластером.
	OperationStateIssued OperationState = "ISSUED"

	// OperationStateActive — транзакция видна в introspection (count > 0).
	OperationStateActive OperationState = "ACTIVE"

	// OperationStateCompleted — introspection вернул 0 строк.
	OperationStateCompleted OperationState = "COMPLETED"

	// OperationStateTimedOut — ожидание брошено, операция не отменена.
	OperationStateTimedOut OperationState = "TIMED_OUT"
)

// IsTerminal возвращает true, если харнесс больше не следит за операцией.
func (s OperationState) IsTerminal() bool {
	switch s {
	case OperationStateCompleted, OperationStateTimedOut:
		return true
	default:
		return false
	}
}

// PollStatus — итог ожидания нулевого количества транзакций.
type PollStatus string

const (
	// PollStatusCompleted — introspection вернул 0 строк.
	PollStatusCompleted PollStatus = "COMPLETED"

	// PollStatusTimedOut — бюджет исчерпан без нулевого результата.
	PollStatusTimedOut PollStatus = "TIMED_OUT"

	// PollStatusCancelled — ожидание прервано через context.
	PollStatusCancelled PollStatus = "CANCELLED"
)

// OperationState переводит итог polling в состояние операции.
func (s PollStatus) OperationState() OperationState {
	switch s {
	case PollStatusCompleted:
		return OperationStateCompleted
	case PollStatusTimedOut, PollStatusCancelled:
		return OperationStateTimedOut
	default:
		return OperationStateActive
	}
}

// OutcomeStatus — результат проверки одного правила конфликта.
type OutcomeStatus string

const (
	// OutcomePassed — конфликтующая команда отклонена с ожидаемым сообщением.
	OutcomePassed OutcomeStatus = "PASSED"

	// OutcomeFailed — инвариант взаимного исключения нарушен
	// (команда принята или отклонена с другим сообщением).
	OutcomeFailed OutcomeStatus = "FAILED"

	// OutcomeError — сценарий не удалось довести до проверки
	// (ошибка отправки, таймаут события, ошибка соединения).
	OutcomeError OutcomeStatus = "ERROR"
)

// RunStatus — статус прогона всей матрицы.
//
// Жизненный цикл:
//
//	RUNNING → PASSED
//	        ↘ FAILED
//	        ↘ CANCELLED
type RunStatus string

const (
	// RunStatusRunning — прогон выполняется.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusPassed — все правила прошли.
	RunStatusPassed RunStatus = "PASSED"

	// RunStatusFailed — хотя бы одно правило FAILED или ERROR.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — прогон прерван (SIGINT, ctx).
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если прогон завершён.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusPassed, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}
