package orchestrator

import (
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/matrix"
)

func TestNewSuiteState(t *testing.T) {
	rules := matrix.Default().Rules
	run := domain.NewSuiteRun("sim", len(rules))

	state := NewSuiteState(run, rules)

	if state.Run != run {
		t.Error("Run should be set")
	}
	stats := state.Stats()
	if stats.TotalRules != 7 || stats.PendingRules != 7 {
		t.Errorf("expected 7 pending rules, got %+v", stats)
	}
	if state.IsComplete() {
		t.Error("fresh state should not be complete")
	}
}

func TestSuiteState_Lifecycle(t *testing.T) {
	rules := []domain.ConflictRule{
		{Name: "a", Blocking: domain.KindCompact, Attempted: domain.KindBalance},
		{Name: "b", Blocking: domain.KindBalance, Attempted: domain.KindCompact},
		{Name: "c", Blocking: domain.KindSplit, Attempted: domain.KindCompact},
	}
	run := domain.NewSuiteRun("sim", len(rules))
	state := NewSuiteState(run, rules)

	state.MarkRuleRunning("a")
	if got := state.RuleState("a"); got != RuleStateRunning {
		t.Errorf("expected RUNNING, got %s", got)
	}

	passed := domain.NewRuleOutcome(uuid.New(), &rules[0])
	passed.MarkPassed(domain.MsgConflictWithCompact)
	state.RecordOutcome(passed)

	state.MarkRuleRunning("b")
	failed := domain.NewRuleOutcome(uuid.New(), &rules[1])
	failed.MarkFailed(domain.FailureUnexpectedSuccess, "")
	state.RecordOutcome(failed)

	state.SkipPending()

	stats := state.Stats()
	if stats.PassedRules != 1 || stats.FailedRules != 1 || stats.SkippedRules != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if !state.IsComplete() {
		t.Error("state should be complete after skipping pending rules")
	}
	if run.Passed != 1 || run.Failed != 1 {
		t.Errorf("run counters not updated: passed=%d failed=%d", run.Passed, run.Failed)
	}

	outcomes := state.Outcomes()
	if len(outcomes) != 2 || outcomes[0].Rule != "a" || outcomes[1].Rule != "b" {
		t.Errorf("outcomes should follow matrix order, got %v", outcomes)
	}
}
