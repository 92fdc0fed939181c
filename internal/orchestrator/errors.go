package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrNoDialer — не задан Dialer.
	ErrNoDialer = errors.New("cluster dialer is required")

	// ErrNoSuite — не задана матрица.
	ErrNoSuite = errors.New("suite is required")

	// ErrSetupFailed — подготовка кластера не удалась.
	ErrSetupFailed = errors.New("cluster setup failed")

	// ErrNoVGroups — SHOW VGROUPS не вернул ни одного vgroup для SPLIT.
	ErrNoVGroups = errors.New("no vgroups to split")

	// ErrRunInProgress — прогон уже выполняется.
	ErrRunInProgress = errors.New("suite run already in progress")
)
