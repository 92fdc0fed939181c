package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/conflictsuite/internal/clustertest"
	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/matrix"
	"github.com/shaiso/conflictsuite/internal/poller"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
	"github.com/shaiso/conflictsuite/internal/telemetry"
)

// testSuite — штатная матрица с коротким бюджетом.
func testSuite(t *testing.T, rules ...string) *matrix.Suite {
	t.Helper()
	s, err := matrix.Default().Filter(rules)
	require.NoError(t, err)
	s.Poll = matrix.Poll{Timeout: 5 * time.Second, Interval: 5 * time.Millisecond}
	s.EventTimeout = time.Second
	return s
}

func newOrchestrator(t *testing.T, dialer sqlconn.Dialer, suite *matrix.Suite, mutate ...func(*Config)) *Orchestrator {
	t.Helper()
	cfg := Config{Dialer: dialer, Suite: suite, Cluster: "sim"}
	for _, m := range mutate {
		m(&cfg)
	}
	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

// memRecorder собирает всё, что записал оркестратор.
type memRecorder struct {
	mu       sync.Mutex
	runs     []domain.RunStatus
	outcomes []*domain.RuleOutcome
}

func (r *memRecorder) RecordRun(_ context.Context, run *domain.SuiteRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run.Status)
	return nil
}

func (r *memRecorder) RecordOutcome(_ context.Context, o *domain.RuleOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

type failingRecorder struct{}

func (failingRecorder) RecordRun(context.Context, *domain.SuiteRun) error {
	return errors.New("db down")
}

func (failingRecorder) RecordOutcome(context.Context, *domain.RuleOutcome) error {
	return errors.New("db down")
}

// hangingDialer — соединения, на которых statement с префиксом зависает до отмены ctx.
type hangingDialer struct {
	inner  sqlconn.Dialer
	prefix string
}

func (d hangingDialer) Dial(ctx context.Context) (sqlconn.Conn, error) {
	conn, err := d.inner.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return &hangingConn{Conn: conn, prefix: d.prefix}, nil
}

type hangingConn struct {
	sqlconn.Conn
	prefix string
}

func (c *hangingConn) Exec(ctx context.Context, sql string) error {
	if strings.HasPrefix(sql, c.prefix) {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.Conn.Exec(ctx, sql)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Suite: matrix.Default()})
	assert.ErrorIs(t, err, ErrNoDialer)

	_, err = New(Config{Dialer: clustertest.New()})
	assert.ErrorIs(t, err, ErrNoSuite)

	bad := matrix.Default()
	bad.Rules = nil
	_, err = New(Config{Dialer: clustertest.New(), Suite: bad})
	assert.ErrorIs(t, err, matrix.ErrNoRules)
}

func TestNew_AppliesSuiteDefaults(t *testing.T) {
	suite, err := matrix.Default().Filter([]string{"balance-vs-compact"})
	require.NoError(t, err)
	suite.EventTimeout = 0
	suite.Poll = matrix.Poll{}

	o, err := New(Config{Dialer: clustertest.New(), Suite: suite})
	require.NoError(t, err)

	// Coordinator и worker получают один и тот же бюджет
	assert.Equal(t, matrix.DefaultEventTimeout, o.suite.EventTimeout)
	assert.Equal(t, poller.DefaultOptions(), o.suite.Poll.Options())

	// Матрица вызывающего не меняется
	assert.Zero(t, suite.EventTimeout)
	assert.Equal(t, matrix.Poll{}, suite.Poll)
}

func TestRun_ZeroEventTimeoutUsesDefault(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(50 * time.Millisecond))
	suite := testSuite(t, "balance-vs-compact")
	suite.EventTimeout = 0
	var logs bytes.Buffer
	o := newOrchestrator(t, c, suite, func(cfg *Config) {
		cfg.Logger = telemetry.NewLogger(&logs, slog.LevelInfo, "text")
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	out := report.Outcomes[0]
	assert.Equal(t, domain.OutcomePassed, out.Status, "%s %s", out.Failure, out.Error)
	assert.Equal(t, domain.MsgConflictTransaction, out.Observed)

	// Действующая граница ожидания видна в логе старта правила
	assert.Contains(t, logs.String(), "event_timeout=1m0s")
	assert.Contains(t, logs.String(), "poll_timeout=5s")
}

func TestRun_DefaultMatrixPasses(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(100 * time.Millisecond))
	rec := &memRecorder{}
	o := newOrchestrator(t, c, testSuite(t), func(cfg *Config) { cfg.Recorder = rec })

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	for _, out := range report.Outcomes {
		assert.Equal(t, domain.OutcomePassed, out.Status, "rule %s: %s %s", out.Rule, out.Failure, out.Error)
		assert.Equal(t, domain.PollStatusCompleted, out.PollStatus, "rule %s", out.Rule)
		assert.Contains(t, out.Observed, out.Expected)
	}
	assert.Len(t, report.Outcomes, 7)
	assert.Equal(t, domain.RunStatusPassed, report.Run.Status)
	assert.Equal(t, 7, report.Run.Passed)
	assert.Zero(t, report.Run.Failed)

	// Прогон записан при старте и при завершении
	assert.Equal(t, []domain.RunStatus{domain.RunStatusRunning, domain.RunStatusPassed}, rec.runs)
	assert.Len(t, rec.outcomes, 7)

	// Все соединения закрыты, кластер простаивает
	assert.Zero(t, c.OpenConns())
	assert.Zero(t, c.Active(domain.KindCompact))
}

func TestRun_CompactVsReplicaLeavesClusterIdle(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(50 * time.Millisecond))
	o := newOrchestrator(t, c, testSuite(t, "compact-vs-alter-replica"))

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	out := report.Outcomes[0]
	assert.Equal(t, domain.OutcomePassed, out.Status)
	assert.Equal(t, domain.PollStatusCompleted, out.PollStatus)
	assert.Equal(t, domain.MsgConflictWithCompact, out.Observed)

	// После COMPLETED свежее соединение не видит активных транзакций
	conn, err := c.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close(context.Background())

	for _, q := range []string{domain.QueryShowTransactions, domain.QueryShowCompacts} {
		res, err := conn.Query(context.Background(), q)
		require.NoError(t, err)
		assert.Zero(t, res.RowCount(), q)
	}
}

func TestRun_SplitVGroupResolved(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(50 * time.Millisecond))
	o := newOrchestrator(t, c, testSuite(t, "split-vs-compact"))

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "SPLIT VGROUP 2", report.Outcomes[0].BlockingStatement)
	assert.Contains(t, c.Statements(), domain.QueryShowVGroups)
}

func TestRun_SetupCreatesDatabase(t *testing.T) {
	c := clustertest.New(clustertest.WithoutDatabase(), clustertest.WithJobDuration(50*time.Millisecond))
	o := newOrchestrator(t, c, testSuite(t, "compact-vs-alter-replica"))

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusPassed, report.Run.Status)
	assert.Equal(t, []int{2, 3, 4, 5}, c.VGroups("db"))
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS db VGROUPS 4 REPLICA 1", c.Statements()[0])
}

func TestRun_BrokenClusterFails(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(30*time.Millisecond), clustertest.WithoutConflictChecks())
	o := newOrchestrator(t, c, testSuite(t, "compact-vs-balance", "balance-vs-compact"))

	report, err := o.Run(context.Background())
	require.NoError(t, err, "rule violations are outcomes, not errors")

	assert.Equal(t, domain.RunStatusFailed, report.Run.Status)
	assert.Equal(t, 2, report.Run.Failed)
	for _, out := range report.Outcomes {
		assert.Equal(t, domain.OutcomeFailed, out.Status)
		assert.Equal(t, domain.FailureUnexpectedSuccess, out.Failure)
	}
}

func TestRun_FailFast(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(30*time.Millisecond), clustertest.WithoutConflictChecks())
	o := newOrchestrator(t, c, testSuite(t), func(cfg *Config) { cfg.FailFast = true })

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, report.Outcomes, 1)
	stats := o.State().Stats()
	assert.Equal(t, 1, stats.FailedRules)
	assert.Equal(t, 6, stats.SkippedRules)
	assert.True(t, o.State().IsComplete())
}

func TestRun_IssueError(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(30 * time.Millisecond))
	c.FailStatement("SPLIT", "Out of dnodes")
	o := newOrchestrator(t, c, testSuite(t, "split-vs-compact", "balance-vs-compact"))

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	split := report.Outcomes[0]
	assert.Equal(t, domain.OutcomeError, split.Status)
	assert.Equal(t, domain.FailureIssue, split.Failure)
	assert.Contains(t, split.Error, "Out of dnodes")

	// Следующее правило выполняется как обычно
	assert.Equal(t, domain.OutcomePassed, report.Outcomes[1].Status)
	assert.Equal(t, domain.RunStatusFailed, report.Run.Status)
}

func TestRun_MessageMismatch(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(30 * time.Millisecond))
	suite := testSuite(t, "compact-vs-balance")
	suite.Rules[0].ExpectedError = domain.MsgConflictTransaction
	o := newOrchestrator(t, c, suite)

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	out := report.Outcomes[0]
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	assert.Equal(t, domain.FailureMessageMismatch, out.Failure)
	assert.Equal(t, domain.MsgConflictWithCompact, out.Observed)
}

func TestRun_EventTimeout(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(30 * time.Millisecond))
	suite := testSuite(t, "balance-vs-compact")
	suite.EventTimeout = 30 * time.Millisecond
	o := newOrchestrator(t, hangingDialer{inner: c, prefix: "BALANCE"}, suite)

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	out := report.Outcomes[0]
	assert.Equal(t, domain.OutcomeError, out.Status)
	assert.Equal(t, domain.FailureEventTimeout, out.Failure)
	assert.Zero(t, c.OpenConns())
}

func TestRun_PollTimeoutIsSoft(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(0))
	suite := testSuite(t, "compact-vs-alter-replica")
	suite.Poll = matrix.Poll{Timeout: 20 * time.Millisecond, Interval: 5 * time.Millisecond}
	o := newOrchestrator(t, c, suite)

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	out := report.Outcomes[0]
	assert.Equal(t, domain.OutcomePassed, out.Status)
	assert.Equal(t, domain.PollStatusTimedOut, out.PollStatus)
	// Compaction продолжает работать на сервере
	assert.Equal(t, 1, c.Active(domain.KindCompact))
}

func TestRun_VerifyAccepted(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(50 * time.Millisecond))
	o := newOrchestrator(t, c, testSuite(t, "compact-vs-alter-replica", "split-vs-compact"),
		func(cfg *Config) { cfg.VerifyAccepted = true })

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	for _, out := range report.Outcomes {
		assert.Equal(t, domain.OutcomePassed, out.Status, "rule %s: %s %s", out.Rule, out.Failure, out.Error)
	}

	// Attempted-команда выполнена дважды: отклонённая и принятая
	count := 0
	for _, stmt := range c.Statements() {
		if stmt == "ALTER DATABASE db REPLICA 3" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestRun_Cancelled(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(0))
	suite := testSuite(t, "compact-vs-alter-replica", "balance-vs-compact")
	suite.Poll = matrix.Poll{Timeout: time.Minute, Interval: 5 * time.Millisecond}
	rec := &memRecorder{}
	o := newOrchestrator(t, c, suite, func(cfg *Config) { cfg.Recorder = rec })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Отменяем, пока worker ждёт завершения compaction
		for c.Active(domain.KindCompact) == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	report, err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, domain.RunStatusCancelled, report.Run.Status)
	assert.Equal(t, domain.RunStatusCancelled, rec.runs[len(rec.runs)-1])
	assert.Equal(t, RuleStateSkipped, o.State().RuleState("balance-vs-compact"))
	assert.Zero(t, c.OpenConns())
}

func TestRun_CoordinatorDialFails(t *testing.T) {
	dialer := sqlconn.DialFunc(func(context.Context) (sqlconn.Conn, error) {
		return nil, errors.New("connection refused")
	})
	o := newOrchestrator(t, dialer, testSuite(t))

	report, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.RunStatusFailed, report.Run.Status)
	assert.Contains(t, report.Run.Error, "connection refused")
	assert.Empty(t, report.Outcomes)
}

func TestRun_SetupFails(t *testing.T) {
	c := clustertest.New()
	c.FailStatement("CREATE DATABASE", "Insufficient privilege")
	o := newOrchestrator(t, c, testSuite(t))

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrSetupFailed)
}

func TestRun_RecorderErrorsAreNotFatal(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(30 * time.Millisecond))
	rec := &memRecorder{}
	o := newOrchestrator(t, c, testSuite(t, "balance-vs-compact"), func(cfg *Config) {
		cfg.Recorder = NewMultiRecorder(failingRecorder{}, nil, rec)
	})

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPassed, report.Run.Status)
	assert.Len(t, rec.outcomes, 1)
}

func TestRun_SingleRunAtATime(t *testing.T) {
	c := clustertest.New(clustertest.WithJobDuration(0))
	suite := testSuite(t, "compact-vs-alter-replica")
	suite.Poll = matrix.Poll{Timeout: time.Minute, Interval: 5 * time.Millisecond}
	o := newOrchestrator(t, c, suite)

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return c.Active(domain.KindCompact) == 1 }, time.Second, time.Millisecond)
	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	c.FinishAll()
	<-done
}
