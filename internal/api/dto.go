package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/matrix"
	"github.com/shaiso/conflictsuite/internal/orchestrator"
)

// Run DTOs

// RunResponse — ответ с прогоном.
type RunResponse struct {
	ID         uuid.UUID        `json:"id"`
	Cluster    string           `json:"cluster"`
	Status     domain.RunStatus `json:"status"`
	Rules      int              `json:"rules"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	DurationMs int64            `json:"duration_ms,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// RunFromDomain конвертирует domain.SuiteRun в RunResponse.
func RunFromDomain(r domain.SuiteRun) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Cluster:    r.Cluster,
		Status:     r.Status,
		Rules:      r.Rules,
		Passed:     r.Passed,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
		Error:      r.Error,
	}
}

// Outcome DTOs

// OutcomeResponse — ответ с результатом правила.
type OutcomeResponse struct {
	ID                 uuid.UUID            `json:"id"`
	Rule               string               `json:"rule"`
	Blocking           domain.OperationKind `json:"blocking"`
	Attempted          domain.OperationKind `json:"attempted"`
	BlockingStatement  string               `json:"blocking_statement"`
	AttemptedStatement string               `json:"attempted_statement"`
	Status             domain.OutcomeStatus `json:"status"`
	Failure            domain.FailureKind   `json:"failure,omitempty"`
	Expected           string               `json:"expected"`
	Observed           string               `json:"observed,omitempty"`
	PollStatus         domain.PollStatus    `json:"poll_status,omitempty"`
	Error              string               `json:"error,omitempty"`
	DurationMs         int64                `json:"duration_ms"`
}

// OutcomeFromDomain конвертирует domain.RuleOutcome в OutcomeResponse.
func OutcomeFromDomain(o domain.RuleOutcome) OutcomeResponse {
	return OutcomeResponse{
		ID:                 o.ID,
		Rule:               o.Rule,
		Blocking:           o.Blocking,
		Attempted:          o.Attempted,
		BlockingStatement:  o.BlockingStatement,
		AttemptedStatement: o.AttemptedStatement,
		Status:             o.Status,
		Failure:            o.Failure,
		Expected:           o.Expected,
		Observed:           o.Observed,
		PollStatus:         o.PollStatus,
		Error:              o.Error,
		DurationMs:         o.Duration().Milliseconds(),
	}
}

// Matrix DTOs

// MatrixResponse — активная матрица.
type MatrixResponse struct {
	Targets      domain.Targets        `json:"targets"`
	PollTimeout  string                `json:"poll_timeout"`
	PollInterval string                `json:"poll_interval"`
	EventTimeout string                `json:"event_timeout"`
	Rules        []domain.ConflictRule `json:"rules"`
}

// MatrixFromSuite конвертирует matrix.Suite в MatrixResponse.
func MatrixFromSuite(s *matrix.Suite) MatrixResponse {
	return MatrixResponse{
		Targets:      s.Targets,
		PollTimeout:  s.Poll.Timeout.String(),
		PollInterval: s.Poll.Interval.String(),
		EventTimeout: s.EventTimeout.String(),
		Rules:        s.Rules,
	}
}

// LiveResponse — состояние прогона в этом процессе.
type LiveResponse struct {
	RunID     uuid.UUID               `json:"run_id"`
	StartedAt time.Time               `json:"started_at"`
	Complete  bool                    `json:"complete"`
	Stats     orchestrator.SuiteStats `json:"stats"`
}
