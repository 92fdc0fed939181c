package matrix

import "errors"

// Ошибки валидации матрицы.
var (
	// ErrNoRules — матрица не содержит правил.
	ErrNoRules = errors.New("suite has no rules")

	// ErrUnknownRule — правило с таким именем отсутствует.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrEmptyRuleName — правило без имени.
	ErrEmptyRuleName = errors.New("rule has empty name")

	// ErrDuplicateRule — несколько правил с одинаковым именем.
	ErrDuplicateRule = errors.New("duplicate rule name")

	// ErrUnknownKind — неизвестный тип операции.
	ErrUnknownKind = errors.New("unknown operation kind")

	// ErrEmptyExpectedError — не задано ожидаемое сообщение.
	ErrEmptyExpectedError = errors.New("rule has empty expected error")

	// ErrInvalidChain — цепочка задана не для REDISTRIBUTE или содержит неверный vgroup.
	ErrInvalidChain = errors.New("invalid redistribute chain")

	// ErrInvalidTargets — по целям нельзя построить операцию правила.
	ErrInvalidTargets = errors.New("invalid operation targets")

	// ErrInvalidPoll — отрицательный бюджет или таймаут.
	ErrInvalidPoll = errors.New("invalid poll settings")

	// ErrInvalidSetup — неверные параметры подготовки кластера.
	ErrInvalidSetup = errors.New("invalid setup")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Rule    string // имя правила, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Rule != "" {
		return "rule " + e.Rule + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(rule, field, message string, err error) *ValidationError {
	return &ValidationError{
		Rule:    rule,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
