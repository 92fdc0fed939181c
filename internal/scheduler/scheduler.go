package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/orchestrator"
)

// Default configuration values.
const (
	defaultTickInterval = time.Second
)

// SuiteRunner выполняет один прогон матрицы. Реализуется orchestrator.Orchestrator.
type SuiteRunner interface {
	Run(ctx context.Context) (*orchestrator.Report, error)
}

// Scheduler — планировщик soak-режима.
type Scheduler struct {
	runner        SuiteRunner
	schedule      *domain.Schedule
	logger        *slog.Logger
	tickInterval  time.Duration
	stopOnFailure bool
}

// Config — конфигурация Scheduler.
type Config struct {
	Runner        SuiteRunner
	Schedule      *domain.Schedule
	Logger        *slog.Logger
	TickInterval  time.Duration // как часто проверять NextDueAt (default: 1s)
	StopOnFailure bool          // остановиться после первого неуспешного прогона
}

// New создаёт Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, ErrNoRunner
	}
	if cfg.Schedule == nil {
		return nil, ErrNoTrigger
	}
	if err := ValidateSchedule(cfg.Schedule); err != nil {
		return nil, err
	}

	tick := cfg.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Первый прогон — сразу
	if cfg.Schedule.NextDueAt == nil {
		now := time.Now()
		cfg.Schedule.NextDueAt = &now
	}

	return &Scheduler{
		runner:        cfg.Runner,
		schedule:      cfg.Schedule,
		logger:        logger,
		tickInterval:  tick,
		stopOnFailure: cfg.StopOnFailure,
	}, nil
}

// Schedule возвращает расписание (с текущими NextDueAt и Runs).
func (s *Scheduler) Schedule() *domain.Schedule {
	return s.schedule
}

// Tick выполняет один тик планировщика.
//
// 1. Проверяет, наступило ли NextDueAt
// 2. Выполняет прогон
// 3. Вычисляет следующее время
//
// Возвращает отчёт прогона или nil, если время не пришло.
func (s *Scheduler) Tick(ctx context.Context) (*orchestrator.Report, error) {
	now := time.Now()
	if !s.schedule.IsDue(now) {
		return nil, nil
	}

	s.logger.Info("soak run due",
		"iteration", s.schedule.Runs+1,
		"due_at", s.schedule.NextDueAt,
	)

	report, runErr := s.runner.Run(ctx)

	// Следующее время считаем от окончания прогона: прогоны не перекрываются
	nextDue, err := CalculateNextDue(s.schedule, time.Now())
	if err != nil {
		return report, fmt.Errorf("calculate next due: %w", err)
	}

	var runID uuid.UUID
	if report != nil && report.Run != nil {
		runID = report.Run.ID
	}
	s.schedule.RecordRun(runID, nextDue)

	if runErr != nil {
		return report, fmt.Errorf("suite run: %w", runErr)
	}

	s.logger.Info("soak run finished",
		"run_id", report.Run.ID,
		"status", report.Run.Status,
		"next_due_at", nextDue,
	)
	return report, nil
}

// Run тикает до отмены ctx, исчерпания MaxRuns или (при StopOnFailure)
// первого неуспешного прогона.
//
// Возвращает nil при исчерпании MaxRuns, ctx.Err() при отмене.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.logger.Info("soak mode started",
		"cron", s.schedule.CronExpr,
		"interval", s.schedule.Interval,
		"max_runs", s.schedule.MaxRuns,
	)

	for {
		report, err := s.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("soak run failed", "error", err)
			if s.stopOnFailure {
				return err
			}
		}
		if report != nil && report.Run.Status == domain.RunStatusFailed && s.stopOnFailure {
			return fmt.Errorf("%w: run %s", ErrRunFailed, report.Run.ID)
		}

		if s.schedule.IsExhausted() {
			s.logger.Info("soak mode finished", "runs", s.schedule.Runs)
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				s.logger.Info("soak mode stopped", "runs", s.schedule.Runs)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
