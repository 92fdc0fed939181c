package scheduler

import "errors"

// Ошибки планировщика.
var (
	// ErrNoTrigger — не задан ни cron, ни интервал.
	ErrNoTrigger = errors.New("schedule has neither cron expression nor interval")

	// ErrInvalidSchedule — некорректные параметры расписания.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrRunFailed — прогон завершился со статусом FAILED (при StopOnFailure).
	ErrRunFailed = errors.New("soak run failed")

	// ErrNoRunner — не задан исполнитель прогонов.
	ErrNoRunner = errors.New("suite runner is required")
)
