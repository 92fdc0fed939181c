package domain

import (
	"fmt"
)

// Документированные сообщения кластера о конфликте транзакций.
// Формулировка — часть контракта продукта, сверяется дословно (подстрокой).
const (
	// MsgConflictWithCompact — структурная операция во время compaction.
	MsgConflictWithCompact = "Transaction not completed due to conflict with compact"

	// MsgConflictTransaction — compaction во время структурной транзакции.
	MsgConflictTransaction = "Conflict transaction not completed"
)

// ConflictRule — одна строка матрицы взаимного исключения.
//
// Пока активна транзакция типа Blocking, команда типа Attempted
// обязана завершиться ошибкой, содержащей ExpectedError.
// Правила — статические данные, харнесс их не изменяет.
type ConflictRule struct {
	// Name — уникальное имя правила (для логов и отчётов).
	Name string `yaml:"name" json:"name"`

	// Blocking — операция, которую выполняет worker.
	Blocking OperationKind `yaml:"blocking" json:"blocking"`

	// Attempted — операция, которую пытается выполнить coordinator.
	Attempted OperationKind `yaml:"attempted" json:"attempted"`

	// ExpectedError — ожидаемое сообщение (подстрока).
	ExpectedError string `yaml:"expected_error" json:"expected_error"`

	// FullMatch — требовать полного совпадения сообщения вместо подстроки.
	FullMatch bool `yaml:"full_match,omitempty" json:"full_match,omitempty"`

	// Chain — vgroup-ы для цепочки REDISTRIBUTE (только для Blocking=REDISTRIBUTE).
	// Каждый элемент должен завершиться до отправки следующего.
	Chain []int `yaml:"chain,omitempty" json:"chain,omitempty"`
}

// IsChain возвращает true, если blocking-сторона — цепочка операций.
func (r *ConflictRule) IsChain() bool {
	return len(r.Chain) > 0
}

// BlockingOperations строит операции worker-а.
// Для цепочки — по одной REDISTRIBUTE на каждый vgroup из Chain.
func (r *ConflictRule) BlockingOperations(t Targets) ([]*AdministrativeOperation, error) {
	if !r.IsChain() {
		op, err := NewOperation(r.Blocking, t)
		if err != nil {
			return nil, fmt.Errorf("rule %s: blocking: %w", r.Name, err)
		}
		return []*AdministrativeOperation{op}, nil
	}

	ops := make([]*AdministrativeOperation, 0, len(r.Chain))
	for _, vgroup := range r.Chain {
		link := t
		link.RedistributeVGroup = vgroup
		op, err := NewOperation(r.Blocking, link)
		if err != nil {
			return nil, fmt.Errorf("rule %s: chain vgroup %d: %w", r.Name, vgroup, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// AttemptedOperation строит конфликтующую операцию coordinator-а.
func (r *ConflictRule) AttemptedOperation(t Targets) (*AdministrativeOperation, error) {
	op, err := NewOperation(r.Attempted, t)
	if err != nil {
		return nil, fmt.Errorf("rule %s: attempted: %w", r.Name, err)
	}
	return op, nil
}

// NeedsSplitVGroup возвращает true, если для правила нужен vgroup для SPLIT.
func (r *ConflictRule) NeedsSplitVGroup() bool {
	return r.Blocking == KindSplit || r.Attempted == KindSplit
}

// String возвращает "BLOCKING vs ATTEMPTED".
func (r *ConflictRule) String() string {
	return fmt.Sprintf("%s vs %s", r.Blocking, r.Attempted)
}
