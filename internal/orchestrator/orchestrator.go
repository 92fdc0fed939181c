package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/conflictsuite/internal/conflict"
	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/matrix"
	"github.com/shaiso/conflictsuite/internal/poller"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
	"github.com/shaiso/conflictsuite/internal/syncevent"
	"github.com/shaiso/conflictsuite/internal/telemetry"
	"github.com/shaiso/conflictsuite/internal/worker"
)

// idleQueries — кластер простаивает, когда оба запроса возвращают 0 строк.
var idleQueries = []string{domain.QueryShowTransactions, domain.QueryShowCompacts}

// Orchestrator прогоняет матрицу конфликтов.
type Orchestrator struct {
	dialer         sqlconn.Dialer
	suite          *matrix.Suite
	cluster        string
	verifyAccepted bool
	failFast       bool
	recorder       Recorder

	logger  *slog.Logger
	metrics *telemetry.Metrics

	// state — текущий прогон (nil до первого Run).
	state   *SuiteState
	stateMu sync.RWMutex
	running sync.Mutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Dialer — источник независимых соединений с кластером.
	Dialer sqlconn.Dialer

	// Suite — матрица, цели, бюджет polling.
	Suite *matrix.Suite

	// Cluster — адрес кластера для отчётов (без учётных данных).
	Cluster string

	// VerifyAccepted — после очистки транзакций повторить attempted-команду
	// и потребовать успеха.
	VerifyAccepted bool

	// FailFast — остановиться на первом неуспешном правиле.
	FailFast bool

	// Recorder (опционально)
	Recorder Recorder

	// Logger
	Logger *slog.Logger

	// Metrics (опционально)
	Metrics *telemetry.Metrics
}

// New создаёт Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Dialer == nil {
		return nil, ErrNoDialer
	}
	if cfg.Suite == nil {
		return nil, ErrNoSuite
	}

	// Копия: значения по умолчанию не должны менять матрицу вызывающего
	suite := *cfg.Suite
	suite.ApplyDefaults()
	if err := matrix.Validate(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		dialer:         cfg.Dialer,
		suite:          &suite,
		cluster:        cfg.Cluster,
		verifyAccepted: cfg.VerifyAccepted,
		failFast:       cfg.FailFast,
		recorder:       cfg.Recorder,
		logger:         logger,
		metrics:        cfg.Metrics,
	}, nil
}

// Report — итог прогона.
type Report struct {
	Run      *domain.SuiteRun      `json:"run"`
	Outcomes []*domain.RuleOutcome `json:"outcomes"`
}

// State возвращает состояние текущего (или последнего) прогона.
func (o *Orchestrator) State() *SuiteState {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

// Run прогоняет матрицу целиком.
//
// Ошибка возвращается, только если прогон не удалось довести до конца
// (соединение coordinator-а, подготовка кластера, отмена ctx).
// Нарушения инвариантов — это FAILED-результаты в Report, а не ошибка.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.running.Unlock()

	run := domain.NewSuiteRun(o.cluster, len(o.suite.Rules))
	state := NewSuiteState(run, o.suite.Rules)
	o.stateMu.Lock()
	o.state = state
	o.stateMu.Unlock()

	logger := telemetry.WithRunID(o.logger, run.ID.String())
	logger.Info("suite run started",
		"cluster", o.cluster,
		"rules", len(o.suite.Rules),
	)
	o.recordRun(ctx, logger, run)

	err := o.execute(ctx, logger, state)

	state.SkipPending()
	switch {
	case err != nil && ctx.Err() != nil:
		run.MarkCancelled(ctx.Err().Error())
	case err != nil:
		run.Finish()
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
	default:
		run.Finish()
	}

	// ctx может быть отменён: финальную запись делаем в фоновом контексте
	o.recordRun(context.WithoutCancel(ctx), logger, run)
	o.metrics.ObserveSuiteRun(string(run.Status))

	logger.Info("suite run finished",
		"status", run.Status,
		"passed", run.Passed,
		"failed", run.Failed,
		"duration", run.Duration(),
	)

	return &Report{Run: run, Outcomes: state.Outcomes()}, err
}

// execute — тело прогона: соединение coordinator-а, подготовка, правила.
func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, state *SuiteState) error {
	coord, err := o.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial coordinator: %w", err)
	}
	defer coord.Close(context.WithoutCancel(ctx))

	coordPoller := poller.New(poller.Config{Conn: coord, Logger: logger, Metrics: o.metrics})
	asserter := conflict.NewAsserter(coord, logger)

	targets, err := o.prepare(ctx, logger, coord, coordPoller)
	if err != nil {
		return err
	}

	for i := range o.suite.Rules {
		rule := &o.suite.Rules[i]
		if err := ctx.Err(); err != nil {
			return err
		}

		state.MarkRuleRunning(rule.Name)
		outcome := o.runRule(ctx, logger, state.Run, rule, targets, asserter, coordPoller)
		state.RecordOutcome(outcome)

		o.metrics.ObserveOutcome(rule.Name, string(outcome.Status))
		if o.recorder != nil {
			if err := o.recorder.RecordOutcome(context.WithoutCancel(ctx), outcome); err != nil {
				logger.Warn("failed to record outcome", "rule", rule.Name, "error", err)
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if o.failFast && outcome.Status != domain.OutcomePassed {
			logger.Warn("fail-fast: stopping after failed rule", "rule", rule.Name)
			break
		}
	}

	return nil
}

// prepare готовит кластер и разрешает цели.
func (o *Orchestrator) prepare(ctx context.Context, logger *slog.Logger, coord sqlconn.Conn, p *poller.Poller) (domain.Targets, error) {
	targets := o.suite.Targets

	for _, stmt := range o.suite.Setup.Statements(targets.Database) {
		if err := coord.Exec(ctx, stmt); err != nil {
			return targets, fmt.Errorf("%w: %s: %w", ErrSetupFailed, stmt, err)
		}
		logger.Info("setup statement executed", "statement", stmt)
	}

	if targets.SplitVGroup == 0 && o.needsSplitVGroup() {
		vgroup, err := resolveSplitVGroup(ctx, coord)
		if err != nil {
			return targets, err
		}
		targets.SplitVGroup = vgroup
		logger.Info("split vgroup resolved", "vgroup", vgroup)
	}

	// Остатки предыдущих прогонов дали бы ложные конфликты
	res, err := p.WaitAllZero(ctx, idleQueries, o.suite.Poll.Options())
	if err != nil {
		return targets, fmt.Errorf("wait for idle cluster: %w", err)
	}
	if !res.Completed() {
		logger.Warn("cluster not idle before suite run", "active", res.LastCount)
	}

	return targets, nil
}

func (o *Orchestrator) needsSplitVGroup() bool {
	for i := range o.suite.Rules {
		if o.suite.Rules[i].NeedsSplitVGroup() {
			return true
		}
	}
	return false
}

// resolveSplitVGroup берёт первый vgroup из SHOW VGROUPS.
func resolveSplitVGroup(ctx context.Context, coord sqlconn.Conn) (int, error) {
	res, err := coord.Query(ctx, domain.QueryShowVGroups)
	if err != nil {
		return 0, fmt.Errorf("resolve split vgroup: %w", err)
	}
	if res.RowCount() == 0 {
		return 0, ErrNoVGroups
	}
	vgroup, err := res.IntValue(0, 0)
	if err != nil {
		return 0, fmt.Errorf("resolve split vgroup: %w", err)
	}
	return vgroup, nil
}

// runRule проверяет одно правило. Всегда возвращает заполненный outcome.
func (o *Orchestrator) runRule(
	ctx context.Context,
	logger *slog.Logger,
	run *domain.SuiteRun,
	rule *domain.ConflictRule,
	targets domain.Targets,
	asserter *conflict.Asserter,
	coordPoller *poller.Poller,
) *domain.RuleOutcome {
	o.metrics.RuleStarted()
	defer o.metrics.RuleFinished()

	outcome := domain.NewRuleOutcome(run.ID, rule)
	logger = telemetry.WithRule(logger, rule.Name, string(rule.Blocking), string(rule.Attempted))
	ctx = telemetry.WithLogger(ctx, logger)

	blocking, err := rule.BlockingOperations(targets)
	if err != nil {
		outcome.MarkError(domain.FailureHarness, err)
		return outcome
	}
	attempted, err := rule.AttemptedOperation(targets)
	if err != nil {
		outcome.MarkError(domain.FailureHarness, err)
		return outcome
	}
	outcome.BlockingStatement = blocking[0].Statement
	outcome.AttemptedStatement = attempted.Statement

	// У worker-а своё соединение: coordinator не должен сериализоваться с ним
	wconn, err := o.dialer.Dial(ctx)
	if err != nil {
		outcome.MarkError(domain.FailureHarness, fmt.Errorf("dial worker: %w", err))
		return outcome
	}
	defer wconn.Close(context.WithoutCancel(ctx))

	w := worker.New(worker.Config{
		Conn:        wconn,
		PollOptions: o.suite.Poll.Options(),
		Logger:      logger,
		Metrics:     o.metrics,
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	logger.Info("rule started",
		"blocking_statement", outcome.BlockingStatement,
		"event_timeout", o.suite.EventTimeout,
		"poll_timeout", o.suite.Poll.Timeout,
	)

	ev := syncevent.New()
	started := time.Now()
	h := w.Start(workerCtx, blocking, ev, "")

	fired, err := ev.WaitTimeout(ctx, o.suite.EventTimeout)
	o.metrics.ObserveEventWait(time.Since(started))
	if err != nil {
		// Worker завис на отправке: прерываем его, job на сервере не трогаем
		cancelWorker()
		h.Join()
		kind := domain.FailureHarness
		if errors.Is(err, syncevent.ErrTimeout) {
			kind = domain.FailureEventTimeout
		}
		outcome.MarkError(kind, err)
		logger.Error("sync event not observed", "error", err)
		return outcome
	}

	if issueErr := fired.Err(); issueErr != nil {
		h.Join()
		outcome.MarkError(domain.FailureIssue, issueErr)
		logger.Error("blocking operation not issued", "error", issueErr)
		return outcome
	}

	observed, assertErr := asserter.AssertConflict(ctx, fired, attempted.Statement, conflict.MatcherFor(rule))

	report := h.Join()
	outcome.PollStatus = report.Poll.Status

	if assertErr != nil {
		if aErr, ok := conflict.AsAssertionError(assertErr); ok {
			outcome.MarkFailed(aErr.Kind, aErr.Observed)
			logger.Error("conflict rule violated", "kind", aErr.Kind, "error", assertErr)
		} else {
			outcome.MarkError(domain.FailureHarness, assertErr)
			logger.Error("conflict check failed", "error", assertErr)
		}
		return outcome
	}

	if report.Err != nil {
		if !errors.Is(report.Err, worker.ErrChainAborted) {
			outcome.MarkError(domain.FailureHarness, report.Err)
			logger.Error("worker failed", "error", report.Err)
			return outcome
		}
		logger.Warn("redistribute chain aborted", "error", report.Err)
	}
	if report.Poll.Status == domain.PollStatusTimedOut {
		logger.Warn("blocking transaction still active after poll budget",
			"state", report.State(),
		)
	}

	if o.verifyAccepted && report.Completed() {
		if kind, err := o.verifyAcceptedAfterClear(ctx, logger, attempted, asserter, coordPoller); err != nil {
			if kind == domain.FailureNotAccepted {
				aErr, _ := conflict.AsAssertionError(err)
				outcome.MarkFailed(kind, aErr.Observed)
			} else {
				outcome.MarkError(kind, err)
			}
			return outcome
		}
	}

	outcome.MarkPassed(observed)
	logger.Info("rule passed", "observed", observed, "duration", outcome.Duration())
	return outcome
}

// verifyAcceptedAfterClear ждёт простоя кластера, повторяет attempted-команду
// и ждёт, пока её собственная транзакция не завершится.
func (o *Orchestrator) verifyAcceptedAfterClear(
	ctx context.Context,
	logger *slog.Logger,
	attempted *domain.AdministrativeOperation,
	asserter *conflict.Asserter,
	coordPoller *poller.Poller,
) (domain.FailureKind, error) {
	opts := o.suite.Poll.Options()

	res, err := coordPoller.WaitAllZero(ctx, idleQueries, opts)
	if err != nil {
		return domain.FailureHarness, err
	}
	if !res.Completed() {
		logger.Warn("cluster not idle, skipping acceptance check")
		return domain.FailureNone, nil
	}

	if err := asserter.AssertAccepted(ctx, attempted.Statement); err != nil {
		if _, ok := conflict.AsAssertionError(err); ok {
			logger.Error("command still rejected after transactions cleared", "error", err)
			return domain.FailureNotAccepted, err
		}
		return domain.FailureHarness, err
	}

	res, err = coordPoller.WaitUntilZero(ctx, attempted.Kind.PollQuery(), opts)
	if err != nil {
		return domain.FailureHarness, err
	}
	if !res.Completed() {
		logger.Warn("accepted command still running after poll budget", "statement", attempted.Statement)
	}
	return domain.FailureNone, nil
}

// recordRun сохраняет прогон, ошибки только логируются.
func (o *Orchestrator) recordRun(ctx context.Context, logger *slog.Logger, run *domain.SuiteRun) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordRun(ctx, run); err != nil {
		logger.Warn("failed to record suite run", "status", run.Status, "error", err)
	}
}
