package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want OperationKind
	}{
		{"COMPACT", KindCompact},
		{"compact", KindCompact},
		{"alter-replica", KindAlterReplica},
		{" Alter Replica ", KindAlterReplica},
		{"redistribute", KindRedistribute},
		{"SPLIT", KindSplit},
		{"balance", KindBalance},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKind("drop"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestNewOperation_Statements(t *testing.T) {
	targets := DefaultTargets()
	targets.SplitVGroup = 2

	tests := []struct {
		kind OperationKind
		want string
	}{
		{KindCompact, "COMPACT DATABASE db"},
		{KindAlterReplica, "ALTER DATABASE db REPLICA 3"},
		{KindBalance, "BALANCE VGROUP"},
		{KindRedistribute, "REDISTRIBUTE VGROUP 5 DNODE 1"},
		{KindSplit, "SPLIT VGROUP 2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			op, err := NewOperation(tt.kind, targets)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if op.Statement != tt.want {
				t.Errorf("expected %q, got %q", tt.want, op.Statement)
			}
			if op.IsIssued() {
				t.Error("new operation should not be issued")
			}
		})
	}
}

func TestNewOperation_InvalidTargets(t *testing.T) {
	tests := []struct {
		name    string
		kind    OperationKind
		targets Targets
	}{
		{"compact without db", KindCompact, Targets{}},
		{"alter without replica", KindAlterReplica, Targets{Database: "db"}},
		{"redistribute without dnode", KindRedistribute, Targets{RedistributeVGroup: 5}},
		{"split unresolved", KindSplit, DefaultTargets()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOperation(tt.kind, tt.targets)
			if !errors.Is(err, ErrInvalidTarget) {
				t.Errorf("expected ErrInvalidTarget, got %v", err)
			}
		})
	}

	if _, err := NewOperation("DROP", DefaultTargets()); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestOperation_MarkIssuedOnce(t *testing.T) {
	op, err := NewOperation(KindBalance, Targets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := op.MarkIssued(time.Now()); err != nil {
		t.Fatalf("first MarkIssued: %v", err)
	}
	if !op.IsIssued() {
		t.Error("operation should be issued")
	}
	if err := op.MarkIssued(time.Now()); !errors.Is(err, ErrAlreadyIssued) {
		t.Errorf("expected ErrAlreadyIssued, got %v", err)
	}
}

func TestOperationKind_PollQuery(t *testing.T) {
	if q := KindCompact.PollQuery(); q != QueryShowCompacts {
		t.Errorf("compact should poll %q, got %q", QueryShowCompacts, q)
	}
	for _, k := range []OperationKind{KindAlterReplica, KindBalance, KindRedistribute, KindSplit} {
		if q := k.PollQuery(); q != QueryShowTransactions {
			t.Errorf("%s should poll %q, got %q", k, QueryShowTransactions, q)
		}
	}
}

func TestPollStatus_OperationState(t *testing.T) {
	if s := PollStatusCompleted.OperationState(); s != OperationStateCompleted {
		t.Errorf("expected COMPLETED, got %s", s)
	}
	if s := PollStatusTimedOut.OperationState(); s != OperationStateTimedOut || !s.IsTerminal() {
		t.Errorf("expected terminal TIMED_OUT, got %s", s)
	}
	if OperationStateActive.IsTerminal() {
		t.Error("ACTIVE is not terminal")
	}
}
