package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// OutcomeRepo — репозиторий для работы с rule_outcomes.
type OutcomeRepo struct {
	pool *pgxpool.Pool
}

// NewOutcomeRepo создаёт новый OutcomeRepo.
func NewOutcomeRepo(pool *pgxpool.Pool) *OutcomeRepo {
	return &OutcomeRepo{pool: pool}
}

const outcomeColumns = `id, run_id, rule, blocking, attempted, blocking_statement, attempted_statement,
	status, failure, expected, observed, poll_status, error, started_at, finished_at`

// Create сохраняет результат правила.
func (r *OutcomeRepo) Create(ctx context.Context, o *domain.RuleOutcome) error {
	query := `
		INSERT INTO rule_outcomes (` + outcomeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.pool.Exec(ctx, query,
		o.ID,
		o.RunID,
		o.Rule,
		o.Blocking,
		o.Attempted,
		o.BlockingStatement,
		o.AttemptedStatement,
		o.Status,
		nullString(string(o.Failure)),
		o.Expected,
		nullString(o.Observed),
		nullString(string(o.PollStatus)),
		nullString(o.Error),
		o.StartedAt,
		o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// ListByRunID возвращает результаты прогона в порядке проверки.
func (r *OutcomeRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.RuleOutcome, error) {
	query := `
		SELECT ` + outcomeColumns + `
		FROM rule_outcomes
		WHERE run_id = $1
		ORDER BY started_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.RuleOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *o)
	}
	return outcomes, rows.Err()
}

func scanOutcome(rows pgx.Rows) (*domain.RuleOutcome, error) {
	var o domain.RuleOutcome
	var failure, observed, pollStatus, outcomeErr *string

	err := rows.Scan(
		&o.ID,
		&o.RunID,
		&o.Rule,
		&o.Blocking,
		&o.Attempted,
		&o.BlockingStatement,
		&o.AttemptedStatement,
		&o.Status,
		&failure,
		&o.Expected,
		&observed,
		&pollStatus,
		&outcomeErr,
		&o.StartedAt,
		&o.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan outcome: %w", err)
	}

	o.Failure = domain.FailureKind(derefString(failure))
	o.Observed = derefString(observed)
	o.PollStatus = domain.PollStatus(derefString(pollStatus))
	o.Error = derefString(outcomeErr)
	return &o, nil
}
