package matrix

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/poller"
)

// Default configuration values.
const (
	DefaultEventTimeout = 60 * time.Second
	defaultSetupVGroups = 4
)

// Suite — матрица конфликтов вместе с параметрами прогона.
type Suite struct {
	Targets      domain.Targets        `yaml:"targets" json:"targets"`
	Setup        Setup                 `yaml:"setup" json:"setup"`
	Poll         Poll                  `yaml:"poll" json:"poll"`
	EventTimeout time.Duration         `yaml:"event_timeout" json:"event_timeout"`
	Rules        []domain.ConflictRule `yaml:"rules" json:"rules"`
}

// Setup — подготовка кластера перед прогоном.
type Setup struct {
	// CreateDatabase — выполнить CREATE DATABASE IF NOT EXISTS для Targets.Database.
	CreateDatabase bool `yaml:"create_database" json:"create_database"`

	// VGroups — количество vgroup-ов создаваемой базы.
	VGroups int `yaml:"vgroups,omitempty" json:"vgroups,omitempty"`
}

// Statements возвращает SQL подготовки для базы database.
func (s Setup) Statements(database string) []string {
	if !s.CreateDatabase {
		return nil
	}
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s VGROUPS %d REPLICA 1", database, s.VGroups),
		fmt.Sprintf("USE %s", database),
	}
}

// Poll — бюджет ожидания транзакций.
// Пустая секция → poller.DefaultOptions(); timeout: 0s при заданном interval
// означает ровно один запрос.
type Poll struct {
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Options переводит секцию в poller.Options.
func (p Poll) Options() poller.Options {
	return poller.Options{Timeout: p.Timeout, Interval: p.Interval}
}

// Default возвращает штатную матрицу конфликтов.
func Default() *Suite {
	withCompact := domain.MsgConflictWithCompact
	transaction := domain.MsgConflictTransaction

	return &Suite{
		Targets: domain.DefaultTargets(),
		Setup:   Setup{CreateDatabase: true, VGroups: defaultSetupVGroups},
		Poll: Poll{
			Timeout:  poller.DefaultTimeout,
			Interval: poller.DefaultInterval,
		},
		EventTimeout: DefaultEventTimeout,
		Rules: []domain.ConflictRule{
			{Name: "compact-vs-alter-replica", Blocking: domain.KindCompact, Attempted: domain.KindAlterReplica, ExpectedError: withCompact},
			{Name: "compact-vs-redistribute", Blocking: domain.KindCompact, Attempted: domain.KindRedistribute, ExpectedError: withCompact},
			{Name: "compact-vs-balance", Blocking: domain.KindCompact, Attempted: domain.KindBalance, ExpectedError: withCompact},
			{Name: "split-vs-compact", Blocking: domain.KindSplit, Attempted: domain.KindCompact, ExpectedError: transaction},
			{Name: "redistribute-chain-vs-compact", Blocking: domain.KindRedistribute, Attempted: domain.KindCompact, ExpectedError: transaction, Chain: []int{5, 4, 3}},
			{Name: "balance-vs-compact", Blocking: domain.KindBalance, Attempted: domain.KindCompact, ExpectedError: transaction},
			{Name: "alter-replica-vs-compact", Blocking: domain.KindAlterReplica, Attempted: domain.KindCompact, ExpectedError: transaction},
		},
	}
}

// Parse читает матрицу из YAML, заполняет значения по умолчанию и валидирует.
// Неизвестные поля — ошибка.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse suite: %w", err)
	}

	s.ApplyDefaults()
	if err := s.normalize(); err != nil {
		return nil, err
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile читает матрицу из файла. path == "" → Default().
func LoadFile(path string) (*Suite, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}
	return Parse(data)
}

// Marshal сериализует матрицу в YAML.
func Marshal(s *Suite) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode suite: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode suite: %w", err)
	}
	return buf.Bytes(), nil
}

// Filter возвращает копию матрицы только с указанными правилами.
func (s *Suite) Filter(names []string) (*Suite, error) {
	if len(names) == 0 {
		return s, nil
	}

	byName := make(map[string]domain.ConflictRule, len(s.Rules))
	for _, r := range s.Rules {
		byName[r.Name] = r
	}

	out := *s
	out.Rules = make([]domain.ConflictRule, 0, len(names))
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			return nil, NewValidationError(name, "name", "no such rule in suite", ErrUnknownRule)
		}
		out.Rules = append(out.Rules, r)
	}
	return &out, nil
}

// ApplyDefaults заполняет незаданные параметры: цели, бюджет polling,
// таймаут события. Пустая секция poll получает poller.DefaultOptions().
func (s *Suite) ApplyDefaults() {
	def := domain.DefaultTargets()
	if s.Targets.Database == "" {
		s.Targets.Database = def.Database
	}
	if s.Targets.Replica == 0 {
		s.Targets.Replica = def.Replica
	}
	if s.Targets.RedistributeVGroup == 0 {
		s.Targets.RedistributeVGroup = def.RedistributeVGroup
	}
	if s.Targets.Dnode == 0 {
		s.Targets.Dnode = def.Dnode
	}
	if s.Poll == (Poll{}) {
		s.Poll = Poll{Timeout: poller.DefaultTimeout, Interval: poller.DefaultInterval}
	}
	if s.EventTimeout == 0 {
		s.EventTimeout = DefaultEventTimeout
	}
	if s.Setup.CreateDatabase && s.Setup.VGroups == 0 {
		s.Setup.VGroups = defaultSetupVGroups
	}
}

// normalize приводит типы операций к каноническому виду ("alter-replica" → ALTER_REPLICA).
func (s *Suite) normalize() error {
	for i := range s.Rules {
		r := &s.Rules[i]

		blocking, err := domain.ParseKind(string(r.Blocking))
		if err != nil {
			return NewValidationError(r.Name, "blocking",
				fmt.Sprintf("unknown operation kind: %s", r.Blocking), ErrUnknownKind)
		}
		attempted, err := domain.ParseKind(string(r.Attempted))
		if err != nil {
			return NewValidationError(r.Name, "attempted",
				fmt.Sprintf("unknown operation kind: %s", r.Attempted), ErrUnknownKind)
		}
		r.Blocking, r.Attempted = blocking, attempted
	}
	return nil
}
