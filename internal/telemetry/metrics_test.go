package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// Ни один вызов не должен паниковать
	m.ObserveOutcome("r", "PASSED")
	m.ObserveSuiteRun("PASSED")
	m.ObservePollAttempt("SHOW TRANSACTIONS")
	m.ObservePoll("SHOW TRANSACTIONS", "COMPLETED", time.Second)
	m.ObserveEventWait(time.Millisecond)
	m.RuleStarted()
	m.RuleFinished()
}

func TestMetrics_ObserveOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveOutcome("compact-vs-alter-replica", "PASSED")
	m.ObserveOutcome("compact-vs-alter-replica", "PASSED")
	m.ObserveOutcome("split-vs-compact", "FAILED")

	if got := testutil.ToFloat64(m.ruleOutcomes.WithLabelValues("compact-vs-alter-replica", "PASSED")); got != 2 {
		t.Errorf("expected 2 passed outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.ruleOutcomes.WithLabelValues("split-vs-compact", "FAILED")); got != 1 {
		t.Errorf("expected 1 failed outcome, got %v", got)
	}
}

func TestMetrics_InFlight(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RuleStarted()
	if got := testutil.ToFloat64(m.inFlightRules); got != 1 {
		t.Errorf("expected 1 rule in flight, got %v", got)
	}
	m.RuleFinished()
	if got := testutil.ToFloat64(m.inFlightRules); got != 0 {
		t.Errorf("expected 0 rules in flight, got %v", got)
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "text")

	WithRule(logger, "split-vs-compact", "SPLIT", "COMPACT").Info("rule passed")

	out := buf.String()
	if !strings.Contains(out, "rule=split-vs-compact") {
		t.Errorf("expected rule attr in output, got %q", out)
	}
	if !strings.Contains(out, "blocking=SPLIT") {
		t.Errorf("expected blocking attr in output, got %q", out)
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, "json")

	logger.Info("hidden")
	logger.Warn("poll timed out")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at WARN level")
	}
	if !strings.Contains(out, "poll timed out") {
		t.Error("warn message should be logged")
	}
}
