package matrix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/poller"
)

func TestDefault_IsValid(t *testing.T) {
	s := Default()

	if err := Validate(s); err != nil {
		t.Fatalf("default suite should be valid: %v", err)
	}
	if len(s.Rules) != 7 {
		t.Errorf("expected 7 rules, got %d", len(s.Rules))
	}

	// Каждая структурная операция против compaction и наоборот
	pairs := make(map[string]bool)
	for _, r := range s.Rules {
		pairs[r.String()] = true
	}
	for _, kind := range []domain.OperationKind{domain.KindAlterReplica, domain.KindRedistribute, domain.KindBalance} {
		if !pairs[string(domain.KindCompact)+" vs "+string(kind)] {
			t.Errorf("missing COMPACT vs %s", kind)
		}
		if !pairs[string(kind)+" vs "+string(domain.KindCompact)] {
			t.Errorf("missing %s vs COMPACT", kind)
		}
	}
	if !pairs["SPLIT vs COMPACT"] {
		t.Error("missing SPLIT vs COMPACT")
	}
}

func TestDefault_Messages(t *testing.T) {
	for _, r := range Default().Rules {
		want := domain.MsgConflictTransaction
		if r.Blocking == domain.KindCompact {
			want = domain.MsgConflictWithCompact
		}
		if r.ExpectedError != want {
			t.Errorf("rule %s: expected %q, got %q", r.Name, want, r.ExpectedError)
		}
	}
}

func TestParse_Full(t *testing.T) {
	data := []byte(`
targets:
  database: metrics
  replica: 3
  redistribute_vgroup: 7
  dnode: 2
  split_vgroup: 9
setup:
  create_database: true
poll:
  timeout: 10s
  interval: 500ms
event_timeout: 5s
rules:
  - name: compact-vs-balance
    blocking: compact
    attempted: balance
    expected_error: conflict with compact
  - name: chain
    blocking: redistribute
    attempted: COMPACT
    expected_error: Conflict transaction not completed
    full_match: true
    chain: [7, 6]
`)

	s, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Targets.Database != "metrics" || s.Targets.SplitVGroup != 9 {
		t.Errorf("unexpected targets: %+v", s.Targets)
	}
	if s.Setup.VGroups != 4 {
		t.Errorf("expected default 4 vgroups, got %d", s.Setup.VGroups)
	}
	if s.Poll.Timeout != 10*time.Second || s.Poll.Interval != 500*time.Millisecond {
		t.Errorf("unexpected poll: %+v", s.Poll)
	}
	if s.EventTimeout != 5*time.Second {
		t.Errorf("unexpected event timeout: %v", s.EventTimeout)
	}

	if s.Rules[0].Blocking != domain.KindCompact || s.Rules[0].Attempted != domain.KindBalance {
		t.Errorf("kinds should be normalized, got %s", s.Rules[0].String())
	}
	if !s.Rules[1].FullMatch || len(s.Rules[1].Chain) != 2 {
		t.Errorf("unexpected chain rule: %+v", s.Rules[1])
	}
}

func TestParse_Defaults(t *testing.T) {
	s, err := Parse([]byte(`
rules:
  - name: split-vs-compact
    blocking: SPLIT
    attempted: COMPACT
    expected_error: Conflict transaction not completed
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Targets != domain.DefaultTargets() {
		t.Errorf("expected default targets, got %+v", s.Targets)
	}
	if s.Poll.Options() != poller.DefaultOptions() {
		t.Errorf("expected default poll options, got %+v", s.Poll)
	}
	if s.EventTimeout != DefaultEventTimeout {
		t.Errorf("expected default event timeout, got %v", s.EventTimeout)
	}
	if s.Setup.CreateDatabase {
		t.Error("setup should be off unless requested")
	}
}

func TestParse_ZeroPollTimeout(t *testing.T) {
	s, err := Parse([]byte(`
poll:
  timeout: 0s
  interval: 1s
rules:
  - name: r
    blocking: BALANCE
    attempted: COMPACT
    expected_error: x
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Poll.Timeout != 0 {
		t.Errorf("explicit zero timeout should be kept, got %v", s.Poll.Timeout)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "empty document",
			data: ``,
			want: ErrNoRules,
		},
		{
			name: "unknown kind",
			data: `
rules:
  - name: r
    blocking: VACUUM
    attempted: COMPACT
    expected_error: x
`,
			want: ErrUnknownKind,
		},
		{
			name: "duplicate rule",
			data: `
rules:
  - {name: r, blocking: BALANCE, attempted: COMPACT, expected_error: x}
  - {name: r, blocking: SPLIT, attempted: COMPACT, expected_error: x}
`,
			want: ErrDuplicateRule,
		},
		{
			name: "empty name",
			data: `
rules:
  - {blocking: BALANCE, attempted: COMPACT, expected_error: x}
`,
			want: ErrEmptyRuleName,
		},
		{
			name: "empty expected error",
			data: `
rules:
  - {name: r, blocking: BALANCE, attempted: COMPACT}
`,
			want: ErrEmptyExpectedError,
		},
		{
			name: "chain on compact",
			data: `
rules:
  - {name: r, blocking: COMPACT, attempted: BALANCE, expected_error: x, chain: [5]}
`,
			want: ErrInvalidChain,
		},
		{
			name: "chain with bad vgroup",
			data: `
rules:
  - {name: r, blocking: REDISTRIBUTE, attempted: COMPACT, expected_error: x, chain: [5, 0]}
`,
			want: ErrInvalidChain,
		},
		{
			name: "negative poll timeout",
			data: `
poll: {timeout: -1s, interval: 1s}
rules:
  - {name: r, blocking: BALANCE, attempted: COMPACT, expected_error: x}
`,
			want: ErrInvalidPoll,
		},
		{
			name: "bad replica",
			data: `
targets: {replica: -1}
rules:
  - {name: r, blocking: ALTER_REPLICA, attempted: COMPACT, expected_error: x}
`,
			want: ErrInvalidTargets,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`
rulez: []
`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate_ValidationErrorContext(t *testing.T) {
	s := Default()
	s.Rules[2].ExpectedError = ""

	err := Validate(s)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if vErr.Rule != "compact-vs-balance" || vErr.Field != "expected_error" {
		t.Errorf("unexpected context: rule=%s field=%s", vErr.Rule, vErr.Field)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s, err := Parse(data)
	if err != nil {
		t.Fatalf("parse marshalled default: %v", err)
	}
	if len(s.Rules) != len(Default().Rules) {
		t.Errorf("expected %d rules, got %d", len(Default().Rules), len(s.Rules))
	}
	if s.Poll.Timeout != poller.DefaultTimeout {
		t.Errorf("expected poll timeout to survive, got %v", s.Poll.Timeout)
	}
}

func TestLoadFile(t *testing.T) {
	s, err := LoadFile("")
	if err != nil || len(s.Rules) != 7 {
		t.Fatalf("empty path should return default suite, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "suite.yaml")
	content := "rules:\n  - {name: r, blocking: BALANCE, attempted: COMPACT, expected_error: x}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err = LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Rules[0].Name != "r" {
		t.Errorf("unexpected rule: %+v", s.Rules[0])
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilter(t *testing.T) {
	s, err := Default().Filter([]string{"split-vs-compact", "compact-vs-balance"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Rules) != 2 || s.Rules[0].Name != "split-vs-compact" {
		t.Errorf("unexpected rules: %+v", s.Rules)
	}

	if _, err := Default().Filter([]string{"nope"}); !errors.Is(err, ErrUnknownRule) {
		t.Errorf("expected ErrUnknownRule, got %v", err)
	}
}

func TestSetup_Statements(t *testing.T) {
	stmts := Setup{CreateDatabase: true, VGroups: 4}.Statements("db")
	if len(stmts) != 2 || stmts[0] != "CREATE DATABASE IF NOT EXISTS db VGROUPS 4 REPLICA 1" || stmts[1] != "USE db" {
		t.Errorf("unexpected setup statements: %v", stmts)
	}
	if (Setup{}).Statements("db") != nil {
		t.Error("disabled setup should produce no statements")
	}
}

func TestValidate_EventTimeoutMustBePositive(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		s := Default()
		s.EventTimeout = d

		if err := Validate(s); !errors.Is(err, ErrInvalidPoll) {
			t.Errorf("event timeout %v: expected ErrInvalidPoll, got %v", d, err)
		}
	}
}

func TestApplyDefaults_ZeroSuite(t *testing.T) {
	s := &Suite{Rules: Default().Rules[:1]}
	s.ApplyDefaults()

	if err := Validate(s); err != nil {
		t.Fatalf("suite with defaults should be valid: %v", err)
	}
	if s.EventTimeout != DefaultEventTimeout {
		t.Errorf("expected default event timeout, got %v", s.EventTimeout)
	}
	if s.Poll.Options() != poller.DefaultOptions() {
		t.Errorf("expected default poll options, got %+v", s.Poll)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	s := &Suite{
		Poll:         Poll{Timeout: 0, Interval: 10 * time.Millisecond},
		EventTimeout: 3 * time.Second,
	}
	s.ApplyDefaults()

	// timeout: 0 при заданном interval — осознанный «один запрос»
	if s.Poll.Timeout != 0 || s.Poll.Interval != 10*time.Millisecond {
		t.Errorf("explicit poll section overwritten: %+v", s.Poll)
	}
	if s.EventTimeout != 3*time.Second {
		t.Errorf("explicit event timeout overwritten: %v", s.EventTimeout)
	}
}
