package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание soak-режима: повторные прогоны матрицы.
//
// Прогон запускается:
// - По cron-выражению: "*/30 * * * *" (каждые 30 минут)
// - По интервалу: через Interval после предыдущего запуска
//
// Scheduler проверяет NextDueAt и запускает прогон, когда время подошло.
type Schedule struct {
	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 * * * *"     — каждый час
	//   "*/10 * * * *"  — каждые 10 минут
	// Если задан CronExpr, Interval игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// Interval — пауза между запусками.
	// Используется если CronExpr не задан.
	Interval time.Duration `json:"interval,omitempty"`

	// Timezone — часовой пояс для cron. По умолчанию: "UTC".
	Timezone string `json:"timezone"`

	// MaxRuns — после скольких прогонов остановиться. 0 — без ограничения.
	MaxRuns int `json:"max_runs,omitempty"`

	// NextDueAt — время следующего прогона.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего прогона.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastRunID — ID последнего прогона.
	LastRunID *uuid.UUID `json:"last_run_id,omitempty"`

	// Runs — сколько прогонов выполнено.
	Runs int `json:"runs"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.Interval > 0
}

// IsExhausted возвращает true, если лимит прогонов исчерпан.
func (s *Schedule) IsExhausted() bool {
	return s.MaxRuns > 0 && s.Runs >= s.MaxRuns
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if s.IsExhausted() || s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// RecordRun записывает информацию о прогоне.
func (s *Schedule) RecordRun(runID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastRunID = &runID
	s.NextDueAt = &nextDue
	s.Runs++
}
