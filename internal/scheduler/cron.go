package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет время следующего прогона.
// Для интервалов просто добавляет Interval к from.
// Учитывает timezone расписания.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc := time.UTC
	if sched.Timezone != "" {
		if l, err := time.LoadLocation(sched.Timezone); err == nil {
			loc = l
		}
	}
	fromInTz := from.In(loc)

	if sched.IsCron() {
		return calculateNextCron(sched.CronExpr, fromInTz)
	}

	if sched.IsInterval() {
		return fromInTz.Add(sched.Interval).UTC(), nil
	}

	return time.Time{}, ErrNoTrigger
}

// calculateNextCron вычисляет следующее время по cron-выражению.
func calculateNextCron(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from).UTC(), nil
}

// ValidateSchedule проверяет расписание до старта soak-режима.
func ValidateSchedule(sched *domain.Schedule) error {
	if sched.MaxRuns < 0 {
		return fmt.Errorf("%w: max runs %d", ErrInvalidSchedule, sched.MaxRuns)
	}
	if sched.IsCron() {
		if _, err := cronParser.Parse(sched.CronExpr); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", sched.CronExpr, err)
		}
		return nil
	}
	if !sched.IsInterval() {
		return ErrNoTrigger
	}
	return nil
}
