// Package scheduler реализует soak-режим: матрица прогоняется повторно
// по cron-выражению или с фиксированным интервалом.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, Run)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Runner:   orch,
//	    Schedule: &domain.Schedule{CronExpr: "*/15 * * * *"},
//	    Logger:   logger,
//	})
//
//	// Блокируется до отмены ctx или исчерпания MaxRuns
//	err = sched.Run(ctx)
//
// Первый прогон стартует сразу. Прогоны не перекрываются: если прогон
// длится дольше периода, следующий запускается после его окончания.
package scheduler
