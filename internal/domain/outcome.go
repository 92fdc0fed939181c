package domain

import (
	"time"

	"github.com/google/uuid"
)

// FailureKind — классификация неуспешного правила.
type FailureKind string

const (
	// FailureNone — правило прошло.
	FailureNone FailureKind = ""

	// FailureIssue — blocking-операция отклонена при отправке.
	FailureIssue FailureKind = "ISSUE_ERROR"

	// FailureUnexpectedSuccess — конфликтующая команда принята кластером.
	FailureUnexpectedSuccess FailureKind = "UNEXPECTED_SUCCESS"

	// FailureMessageMismatch — команда отклонена, но с другим сообщением.
	FailureMessageMismatch FailureKind = "MESSAGE_MISMATCH"

	// FailureEventTimeout — worker не подал сигнал вовремя.
	FailureEventTimeout FailureKind = "EVENT_TIMEOUT"

	// FailureNotAccepted — после очистки транзакций команда всё ещё отклоняется.
	FailureNotAccepted FailureKind = "NOT_ACCEPTED"

	// FailureHarness — ошибка соединения или прочая ошибка харнесса.
	FailureHarness FailureKind = "HARNESS_ERROR"
)

// RuleOutcome — результат проверки одного правила в рамках прогона.
type RuleOutcome struct {
	// ID — идентификатор результата.
	ID uuid.UUID `json:"id"`

	// RunID — прогон, к которому относится результат.
	RunID uuid.UUID `json:"run_id"`

	// Rule — имя правила.
	Rule string `json:"rule"`

	// Blocking — тип blocking-операции.
	Blocking OperationKind `json:"blocking"`

	// Attempted — тип конфликтующей операции.
	Attempted OperationKind `json:"attempted"`

	// BlockingStatement — отправленный worker-ом SQL (первое звено для цепочки).
	BlockingStatement string `json:"blocking_statement"`

	// AttemptedStatement — отправленный coordinator-ом SQL.
	AttemptedStatement string `json:"attempted_statement"`

	// Status — PASSED / FAILED / ERROR.
	Status OutcomeStatus `json:"status"`

	// Failure — классификация неуспеха.
	Failure FailureKind `json:"failure,omitempty"`

	// Expected — ожидаемое сообщение.
	Expected string `json:"expected"`

	// Observed — фактическое сообщение кластера (пусто при успехе команды).
	Observed string `json:"observed,omitempty"`

	// PollStatus — чем закончилось ожидание blocking-транзакции.
	PollStatus PollStatus `json:"poll_status,omitempty"`

	// Error — текст ошибки харнесса.
	Error string `json:"error,omitempty"`

	// StartedAt / FinishedAt — границы проверки правила.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRuleOutcome создаёт результат для правила в рамках прогона.
func NewRuleOutcome(runID uuid.UUID, rule *ConflictRule) *RuleOutcome {
	return &RuleOutcome{
		ID:        uuid.New(),
		RunID:     runID,
		Rule:      rule.Name,
		Blocking:  rule.Blocking,
		Attempted: rule.Attempted,
		Expected:  rule.ExpectedError,
		StartedAt: time.Now(),
	}
}

// Duration возвращает продолжительность проверки правила.
func (o *RuleOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// MarkPassed фиксирует успешную проверку.
func (o *RuleOutcome) MarkPassed(observed string) {
	o.Status = OutcomePassed
	o.Failure = FailureNone
	o.Observed = observed
	o.FinishedAt = time.Now()
}

// MarkFailed фиксирует нарушение инварианта.
func (o *RuleOutcome) MarkFailed(kind FailureKind, observed string) {
	o.Status = OutcomeFailed
	o.Failure = kind
	o.Observed = observed
	o.FinishedAt = time.Now()
}

// MarkError фиксирует ошибку харнесса, не позволившую проверить правило.
func (o *RuleOutcome) MarkError(kind FailureKind, err error) {
	o.Status = OutcomeError
	o.Failure = kind
	if err != nil {
		o.Error = err.Error()
	}
	o.FinishedAt = time.Now()
}
