package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperationKind — тип административной операции кластера.
type OperationKind string

const (
	// KindCompact — COMPACT DATABASE <db>.
	KindCompact OperationKind = "COMPACT"

	// KindAlterReplica — ALTER DATABASE <db> REPLICA <n>.
	KindAlterReplica OperationKind = "ALTER_REPLICA"

	// KindBalance — BALANCE VGROUP.
	KindBalance OperationKind = "BALANCE"

	// KindRedistribute — REDISTRIBUTE VGROUP <id> DNODE <id>.
	KindRedistribute OperationKind = "REDISTRIBUTE"

	// KindSplit — SPLIT VGROUP <id>.
	KindSplit OperationKind = "SPLIT"
)

// Introspection-запросы. Оба возвращают 0 строк, когда кластер простаивает.
const (
	QueryShowTransactions = "SHOW TRANSACTIONS"
	QueryShowCompacts     = "SHOW COMPACTS"
	QueryShowVGroups      = "SHOW VGROUPS"
)

// Ошибки построения операций.
var (
	// ErrUnknownKind — неизвестный тип операции.
	ErrUnknownKind = errors.New("unknown operation kind")

	// ErrInvalidTarget — цель операции не заполнена.
	ErrInvalidTarget = errors.New("invalid operation target")

	// ErrAlreadyIssued — операция уже отправлена и неизменяема.
	ErrAlreadyIssued = errors.New("operation already issued")
)

var allKinds = []OperationKind{KindCompact, KindAlterReplica, KindBalance, KindRedistribute, KindSplit}

// Kinds возвращает все известные типы операций.
func Kinds() []OperationKind {
	out := make([]OperationKind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind парсит тип операции (регистр и разделители не важны).
func ParseKind(s string) (OperationKind, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, k := range allKinds {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsValid проверяет, что тип операции известен.
func (k OperationKind) IsValid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// PollQuery возвращает introspection-запрос, по которому видно завершение операции.
// Compaction отслеживается через SHOW COMPACTS, остальные — через SHOW TRANSACTIONS.
func (k OperationKind) PollQuery() string {
	if k == KindCompact {
		return QueryShowCompacts
	}
	return QueryShowTransactions
}

// Targets — объекты кластера, над которыми выполняются операции.
type Targets struct {
	// Database — имя базы для COMPACT и ALTER REPLICA.
	Database string `yaml:"database" json:"database"`

	// Replica — целевой replica factor для ALTER DATABASE.
	Replica int `yaml:"replica" json:"replica"`

	// RedistributeVGroup — vgroup для REDISTRIBUTE.
	RedistributeVGroup int `yaml:"redistribute_vgroup" json:"redistribute_vgroup"`

	// Dnode — dnode назначения для REDISTRIBUTE.
	Dnode int `yaml:"dnode" json:"dnode"`

	// SplitVGroup — vgroup для SPLIT. 0 — взять первую строку SHOW VGROUPS.
	SplitVGroup int `yaml:"split_vgroup" json:"split_vgroup"`
}

// DefaultTargets возвращает цели, которыми пользуется штатный conflict-сьют.
func DefaultTargets() Targets {
	return Targets{
		Database:           "db",
		Replica:            3,
		RedistributeVGroup: 5,
		Dnode:              1,
	}
}

// AdministrativeOperation — одна отправляемая в кластер административная операция.
//
// Создаётся до отправки; после MarkIssued неизменяема — выполнением
// владеет кластер.
type AdministrativeOperation struct {
	// ID — идентификатор операции внутри харнесса (для логов и отчётов).
	ID uuid.UUID `json:"id"`

	// Kind — тип операции.
	Kind OperationKind `json:"kind"`

	// Target — человекочитаемая цель: "db", "vgroup 5 -> dnode 1".
	Target string `json:"target"`

	// Statement — SQL, который будет отправлен.
	Statement string `json:"statement"`

	// IssuedAt — время принятия statement кластером. Nil, пока не отправлена.
	IssuedAt *time.Time `json:"issued_at,omitempty"`
}

// NewOperation строит операцию заданного типа по целям.
func NewOperation(kind OperationKind, t Targets) (*AdministrativeOperation, error) {
	op := &AdministrativeOperation{ID: uuid.New(), Kind: kind}

	switch kind {
	case KindCompact:
		if t.Database == "" {
			return nil, fmt.Errorf("%w: compact requires database", ErrInvalidTarget)
		}
		op.Target = t.Database
		op.Statement = fmt.Sprintf("COMPACT DATABASE %s", t.Database)

	case KindAlterReplica:
		if t.Database == "" || t.Replica <= 0 {
			return nil, fmt.Errorf("%w: alter replica requires database and replica > 0", ErrInvalidTarget)
		}
		op.Target = t.Database
		op.Statement = fmt.Sprintf("ALTER DATABASE %s REPLICA %d", t.Database, t.Replica)

	case KindBalance:
		op.Target = "cluster"
		op.Statement = "BALANCE VGROUP"

	case KindRedistribute:
		if t.RedistributeVGroup <= 0 || t.Dnode <= 0 {
			return nil, fmt.Errorf("%w: redistribute requires vgroup and dnode", ErrInvalidTarget)
		}
		op.Target = fmt.Sprintf("vgroup %d -> dnode %d", t.RedistributeVGroup, t.Dnode)
		op.Statement = fmt.Sprintf("REDISTRIBUTE VGROUP %d DNODE %d", t.RedistributeVGroup, t.Dnode)

	case KindSplit:
		if t.SplitVGroup <= 0 {
			return nil, fmt.Errorf("%w: split requires vgroup (resolve it first)", ErrInvalidTarget)
		}
		op.Target = fmt.Sprintf("vgroup %d", t.SplitVGroup)
		op.Statement = fmt.Sprintf("SPLIT VGROUP %d", t.SplitVGroup)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return op, nil
}

// MarkIssued фиксирует момент принятия statement кластером.
func (o *AdministrativeOperation) MarkIssued(at time.Time) error {
	if o.IssuedAt != nil {
		return ErrAlreadyIssued
	}
	o.IssuedAt = &at
	return nil
}

// IsIssued возвращает true, если statement принят кластером.
func (o *AdministrativeOperation) IsIssued() bool {
	return o.IssuedAt != nil
}

// String возвращает краткое описание для логов.
func (o *AdministrativeOperation) String() string {
	return fmt.Sprintf("%s(%s)", o.Kind, o.Target)
}
