package orchestrator

import (
	"context"
	"errors"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// Recorder сохраняет результаты прогона.
//
// RecordRun вызывается дважды: при старте (RUNNING) и при завершении.
// Реализации: repo.Store (Postgres), mq.Publisher (RabbitMQ).
type Recorder interface {
	RecordRun(ctx context.Context, run *domain.SuiteRun) error
	RecordOutcome(ctx context.Context, outcome *domain.RuleOutcome) error
}

// MultiRecorder рассылает результаты во все recorder-ы.
// Ошибка одного не мешает остальным.
type MultiRecorder []Recorder

// NewMultiRecorder отбрасывает nil recorder-ы.
func NewMultiRecorder(recorders ...Recorder) MultiRecorder {
	var out MultiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// RecordRun реализует Recorder.
func (m MultiRecorder) RecordRun(ctx context.Context, run *domain.SuiteRun) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordOutcome реализует Recorder.
func (m MultiRecorder) RecordOutcome(ctx context.Context, outcome *domain.RuleOutcome) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordOutcome(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
