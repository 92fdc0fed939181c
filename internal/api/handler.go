package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/matrix"
	"github.com/shaiso/conflictsuite/internal/orchestrator"
	"github.com/shaiso/conflictsuite/internal/repo"
)

// Store — чтение результатов. Реализуется repo.Store.
type Store interface {
	ListRuns(ctx context.Context, filter repo.RunFilter) ([]domain.SuiteRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*domain.SuiteRun, error)
	ListOutcomes(ctx context.Context, runID uuid.UUID) ([]domain.RuleOutcome, error)
}

// LiveSource отдаёт состояние идущего прогона. Реализуется orchestrator.Orchestrator.
type LiveSource interface {
	State() *orchestrator.SuiteState
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store    Store
	suite    *matrix.Suite
	live     LiveSource
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Store — история прогонов. Nil — /runs отвечают 503.
	Store Store

	// Suite — активная матрица для /matrix.
	Suite *matrix.Suite

	// Live (опционально) — состояние прогона в этом процессе.
	Live LiveSource

	// Gatherer — источник /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Handler{
		store:    cfg.Store,
		suite:    cfg.Suite,
		live:     cfg.Live,
		gatherer: gatherer,
		logger:   logger,
	}
}
