package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// Store объединяет репозитории результатов.
//
// Реализует orchestrator.Recorder (запись) и api.Store (чтение).
type Store struct {
	Runs     *RunRepo
	Outcomes *OutcomeRepo
}

// NewStore создаёт Store поверх пула.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Runs:     NewRunRepo(pool),
		Outcomes: NewOutcomeRepo(pool),
	}
}

// RecordRun сохраняет прогон (при старте и при завершении).
func (s *Store) RecordRun(ctx context.Context, run *domain.SuiteRun) error {
	return s.Runs.Upsert(ctx, run)
}

// RecordOutcome сохраняет результат правила.
func (s *Store) RecordOutcome(ctx context.Context, outcome *domain.RuleOutcome) error {
	return s.Outcomes.Create(ctx, outcome)
}

// GetRun возвращает прогон по ID.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*domain.SuiteRun, error) {
	return s.Runs.GetByID(ctx, id)
}

// ListRuns возвращает последние прогоны.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]domain.SuiteRun, error) {
	return s.Runs.List(ctx, filter)
}

// ListOutcomes возвращает результаты прогона.
func (s *Store) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]domain.RuleOutcome, error) {
	return s.Outcomes.ListByRunID(ctx, runID)
}
