package matrix

import (
	"fmt"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// Validate выполняет полную валидацию матрицы.
//
// Проверяет:
// - Наличие правил
// - Уникальность имён
// - Типы операций
// - Ожидаемое сообщение
// - Цепочки REDISTRIBUTE
// - Что по целям строятся операции каждого правила
// - Бюджет polling и таймаут события
func Validate(s *Suite) error {
	if s == nil || len(s.Rules) == 0 {
		return ErrNoRules
	}

	if s.Poll.Timeout < 0 || s.Poll.Interval < 0 {
		return NewValidationError("", "poll", "poll timeout and interval must not be negative", ErrInvalidPoll)
	}
	if s.EventTimeout <= 0 {
		return NewValidationError("", "event_timeout", "event timeout must be positive", ErrInvalidPoll)
	}
	if s.Setup.CreateDatabase && s.Setup.VGroups <= 0 {
		return NewValidationError("", "setup.vgroups", "vgroups must be positive", ErrInvalidSetup)
	}

	names := make(map[string]bool, len(s.Rules))
	for i := range s.Rules {
		if err := ValidateRule(&s.Rules[i], s.Targets, names); err != nil {
			return err
		}
	}

	return nil
}

// ValidateRule валидирует одно правило.
// names — уже встреченные имена (для проверки уникальности).
func ValidateRule(r *domain.ConflictRule, targets domain.Targets, names map[string]bool) error {
	if r.Name == "" {
		return NewValidationError("", "name", "rule has empty name", ErrEmptyRuleName)
	}
	if names[r.Name] {
		return NewValidationError(r.Name, "name",
			fmt.Sprintf("duplicate rule name: %s", r.Name), ErrDuplicateRule)
	}
	names[r.Name] = true

	if !r.Blocking.IsValid() {
		return NewValidationError(r.Name, "blocking",
			fmt.Sprintf("unknown operation kind: %s", r.Blocking), ErrUnknownKind)
	}
	if !r.Attempted.IsValid() {
		return NewValidationError(r.Name, "attempted",
			fmt.Sprintf("unknown operation kind: %s", r.Attempted), ErrUnknownKind)
	}

	if r.ExpectedError == "" {
		return NewValidationError(r.Name, "expected_error",
			"rule has empty expected error", ErrEmptyExpectedError)
	}

	if err := validateChain(r); err != nil {
		return err
	}

	// SPLIT vgroup может разрешаться по SHOW VGROUPS во время прогона
	if r.NeedsSplitVGroup() && targets.SplitVGroup == 0 {
		targets.SplitVGroup = 1
	}
	if _, err := r.BlockingOperations(targets); err != nil {
		return NewValidationError(r.Name, "targets", err.Error(), ErrInvalidTargets)
	}
	if _, err := r.AttemptedOperation(targets); err != nil {
		return NewValidationError(r.Name, "targets", err.Error(), ErrInvalidTargets)
	}

	return nil
}

// validateChain проверяет цепочку REDISTRIBUTE.
func validateChain(r *domain.ConflictRule) error {
	if !r.IsChain() {
		return nil
	}
	if r.Blocking != domain.KindRedistribute {
		return NewValidationError(r.Name, "chain",
			fmt.Sprintf("chain is only supported for %s, got %s", domain.KindRedistribute, r.Blocking), ErrInvalidChain)
	}
	for i, vg := range r.Chain {
		if vg <= 0 {
			return NewValidationError(r.Name, "chain",
				fmt.Sprintf("chain link %d has invalid vgroup %d", i, vg), ErrInvalidChain)
		}
	}
	return nil
}
