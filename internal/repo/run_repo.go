package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// Default configuration values.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RunRepo — репозиторий для работы с suite_runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

const runColumns = `id, cluster, status, rules, passed, failed, started_at, finished_at, error`

// Upsert создаёт прогон или обновляет его статус и счётчики.
func (r *RunRepo) Upsert(ctx context.Context, run *domain.SuiteRun) error {
	query := `
		INSERT INTO suite_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    passed = EXCLUDED.passed,
		    failed = EXCLUDED.failed,
		    finished_at = EXCLUDED.finished_at,
		    error = EXCLUDED.error
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Cluster,
		run.Status,
		run.Rules,
		run.Passed,
		run.Failed,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// GetByID возвращает прогон по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SuiteRun, error) {
	query := `SELECT ` + runColumns + ` FROM suite_runs WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// RunFilter — параметры фильтрации прогонов.
type RunFilter struct {
	Status domain.RunStatus
	Limit  int
	Offset int
}

// List возвращает прогоны, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.SuiteRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM suite_runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		clampLimit(filter.Limit),
		max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SuiteRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanRun сканирует одну строку в SuiteRun.
// pgx.Rows тоже реализует pgx.Row, поэтому функция общая.
func scanRun(row pgx.Row) (*domain.SuiteRun, error) {
	var run domain.SuiteRun
	var runError *string

	err := row.Scan(
		&run.ID,
		&run.Cluster,
		&run.Status,
		&run.Rules,
		&run.Passed,
		&run.Failed,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if runError != nil {
		run.Error = *runError
	}
	return &run, nil
}

// --- Helpers ---

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString возвращает "" для NULL.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// clampLimit приводит limit к [1, maxListLimit].
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
