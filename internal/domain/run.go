package domain

import (
	"time"

	"github.com/google/uuid"
)

// SuiteRun — один прогон матрицы конфликтов против кластера.
//
// SuiteRun создаётся когда:
// - Пользователь запускает `conflictsuite run`
// - Scheduler запускает очередную итерацию soak-режима
type SuiteRun struct {
	// ID — уникальный идентификатор прогона.
	ID uuid.UUID `json:"id"`

	// Cluster — адрес кластера (без учётных данных).
	Cluster string `json:"cluster"`

	// Status — текущий статус прогона.
	Status RunStatus `json:"status"`

	// Rules — количество правил в матрице.
	Rules int `json:"rules"`

	// Passed — количество прошедших правил.
	Passed int `json:"passed"`

	// Failed — количество правил со статусом FAILED или ERROR.
	Failed int `json:"failed"`

	// StartedAt — время начала прогона.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения. Nil, пока прогон идёт.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — причина прерывания, если прогон не дошёл до конца.
	Error string `json:"error,omitempty"`
}

// NewSuiteRun создаёт прогон в статусе RUNNING.
func NewSuiteRun(cluster string, rules int) *SuiteRun {
	return &SuiteRun{
		ID:        uuid.New(),
		Cluster:   cluster,
		Status:    RunStatusRunning,
		Rules:     rules,
		StartedAt: time.Now(),
	}
}

// Duration возвращает продолжительность прогона.
// Возвращает 0, если прогон ещё не завершён.
func (r *SuiteRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// IsFinished возвращает true, если прогон завершён (в любом статусе).
func (r *SuiteRun) IsFinished() bool {
	return r.Status.IsTerminal()
}

// Count учитывает результат одного правила.
func (r *SuiteRun) Count(o *RuleOutcome) {
	if o.Status == OutcomePassed {
		r.Passed++
		return
	}
	r.Failed++
}

// Finish переводит прогон в PASSED или FAILED по счётчикам.
func (r *SuiteRun) Finish() {
	now := time.Now()
	r.FinishedAt = &now
	if r.Failed > 0 {
		r.Status = RunStatusFailed
		return
	}
	r.Status = RunStatusPassed
}

// MarkCancelled переводит прогон в CANCELLED.
func (r *SuiteRun) MarkCancelled(reason string) {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.Error = reason
}
