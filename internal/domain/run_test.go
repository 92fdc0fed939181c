package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSuiteRun_Finish(t *testing.T) {
	run := NewSuiteRun("sim", 2)
	if run.Status != RunStatusRunning || run.IsFinished() {
		t.Fatalf("new run should be RUNNING, got %s", run.Status)
	}

	rule := &ConflictRule{Name: "r", Blocking: KindCompact, Attempted: KindBalance, ExpectedError: MsgConflictWithCompact}

	passed := NewRuleOutcome(run.ID, rule)
	passed.MarkPassed(MsgConflictWithCompact)
	run.Count(passed)
	run.Finish()

	if run.Status != RunStatusPassed {
		t.Errorf("expected PASSED, got %s", run.Status)
	}
	if run.Passed != 1 || run.Failed != 0 {
		t.Errorf("unexpected counters: passed=%d failed=%d", run.Passed, run.Failed)
	}
	if run.FinishedAt == nil || run.Duration() < 0 {
		t.Error("finished run should have FinishedAt")
	}
}

func TestSuiteRun_FailedOnError(t *testing.T) {
	run := NewSuiteRun("sim", 1)
	rule := &ConflictRule{Name: "r", Blocking: KindCompact, Attempted: KindBalance}

	o := NewRuleOutcome(run.ID, rule)
	o.MarkError(FailureEventTimeout, errors.New("no signal"))
	run.Count(o)
	run.Finish()

	if run.Status != RunStatusFailed {
		t.Errorf("ERROR outcome should fail the run, got %s", run.Status)
	}
	if o.Error != "no signal" || o.Failure != FailureEventTimeout {
		t.Errorf("unexpected outcome: %+v", o)
	}
}

func TestSuiteRun_MarkCancelled(t *testing.T) {
	run := NewSuiteRun("sim", 7)
	run.MarkCancelled("context canceled")

	if run.Status != RunStatusCancelled || !run.IsFinished() {
		t.Errorf("expected CANCELLED, got %s", run.Status)
	}
	if run.Error != "context canceled" {
		t.Errorf("unexpected error: %q", run.Error)
	}
}

func TestRuleOutcome_MarkFailed(t *testing.T) {
	rule := &ConflictRule{Name: "r", Blocking: KindSplit, Attempted: KindCompact, ExpectedError: MsgConflictTransaction}
	o := NewRuleOutcome(uuid.New(), rule)

	if o.Duration() != 0 {
		t.Error("unfinished outcome should have zero duration")
	}

	o.MarkFailed(FailureUnexpectedSuccess, "")
	if o.Status != OutcomeFailed || o.Failure != FailureUnexpectedSuccess {
		t.Errorf("unexpected outcome: %+v", o)
	}
	if o.Expected != MsgConflictTransaction {
		t.Errorf("expected message not copied from rule: %q", o.Expected)
	}
}

func TestSchedule_IsDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	s := &Schedule{Interval: time.Minute, MaxRuns: 1}
	if s.IsDue(now) {
		t.Error("schedule without NextDueAt is not due")
	}

	s.NextDueAt = &past
	if !s.IsDue(now) {
		t.Error("schedule should be due")
	}

	s.RecordRun(uuid.New(), now.Add(time.Minute))
	if s.Runs != 1 || s.LastRunID == nil || s.LastRunAt == nil {
		t.Errorf("run not recorded: %+v", s)
	}
	if !s.IsExhausted() || s.IsDue(now.Add(time.Hour)) {
		t.Error("exhausted schedule must not be due")
	}
}

func TestSchedule_Trigger(t *testing.T) {
	cron := &Schedule{CronExpr: "* * * * *", Interval: time.Minute}
	if !cron.IsCron() || cron.IsInterval() {
		t.Error("cron expression takes precedence over interval")
	}

	interval := &Schedule{Interval: time.Minute}
	if interval.IsCron() || !interval.IsInterval() {
		t.Error("expected interval schedule")
	}
}
