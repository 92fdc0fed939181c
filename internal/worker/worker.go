package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/poller"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
	"github.com/shaiso/conflictsuite/internal/syncevent"
	"github.com/shaiso/conflictsuite/internal/telemetry"
)

// Worker выполняет blocking-операции по своему соединению.
//
// Worker не потокобезопасен: одно соединение — одна горутина.
type Worker struct {
	conn     sqlconn.Conn
	poller   *poller.Poller
	pollOpts poller.Options
	logger   *slog.Logger
}

// Config — конфигурация Worker.
type Config struct {
	// Conn — соединение, принадлежащее этому worker-у.
	Conn sqlconn.Conn

	// PollOptions — бюджет ожидания завершения
	// (нулевое значение → poller.DefaultOptions()).
	PollOptions poller.Options

	// Logger
	Logger *slog.Logger

	// Metrics (опционально)
	Metrics *telemetry.Metrics
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pollOpts := cfg.PollOptions
	if pollOpts == (poller.Options{}) {
		pollOpts = poller.DefaultOptions()
	}

	return &Worker{
		conn: cfg.Conn,
		poller: poller.New(poller.Config{
			Conn:    cfg.Conn,
			Logger:  logger,
			Metrics: cfg.Metrics,
		}),
		pollOpts: pollOpts,
		logger:   logger,
	}
}

// Report — итог работы worker-а.
type Report struct {
	// Operations — операции в порядке отправки.
	Operations []*domain.AdministrativeOperation

	// States — наблюдаемое состояние каждой операции.
	States []domain.OperationState

	// Issued — сколько операций принято кластером.
	Issued int

	// Poll — результат последнего ожидания.
	Poll poller.Result

	// Err — IssueError, ошибка ожидания или ErrChainAborted.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}

// State возвращает состояние последней операции, до которой дошёл worker.
func (r Report) State() domain.OperationState {
	if len(r.States) == 0 {
		return domain.OperationStateUnissued
	}
	return r.States[len(r.States)-1]
}

// Completed возвращает true, если все операции дошли до COMPLETED.
func (r Report) Completed() bool {
	if r.Err != nil || len(r.States) != len(r.Operations) || len(r.Operations) == 0 {
		return false
	}
	for _, s := range r.States {
		if s != domain.OperationStateCompleted {
			return false
		}
	}
	return true
}

// Run выполняет одну операцию: отправка → событие → ожидание.
// pollQuery == "" — запрос берётся из типа операции.
func (w *Worker) Run(ctx context.Context, op *domain.AdministrativeOperation, ev *syncevent.Event, pollQuery string) Report {
	return w.RunChain(ctx, []*domain.AdministrativeOperation{op}, ev, pollQuery)
}

// RunChain выполняет операции по очереди.
// Событие поднимается ровно один раз: после первой операции (принятой или отклонённой).
func (w *Worker) RunChain(ctx context.Context, ops []*domain.AdministrativeOperation, ev *syncevent.Event, pollQuery string) Report {
	report := Report{Operations: ops, StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	signal := func(err error) {
		if ev != nil {
			ev.Set(err)
		}
	}

	if len(ops) == 0 {
		signal(ErrEmptyChain)
		report.Err = ErrEmptyChain
		return report
	}

	for i, op := range ops {
		logger := telemetry.WithOperation(w.logger, op.ID.String(), string(op.Kind))

		if err := w.conn.Exec(ctx, op.Statement); err != nil {
			issueErr := &IssueError{Operation: op, Err: err}
			signal(issueErr)
			report.States = append(report.States, domain.OperationStateUnissued)
			report.Err = issueErr

			logger.Error("operation rejected", "statement", op.Statement, "error", err)
			return report
		}

		if err := op.MarkIssued(time.Now()); err != nil {
			logger.Warn("operation marked issued twice", "error", err)
		}
		report.Issued++
		signal(nil)

		logger.Info("operation accepted",
			"statement", op.Statement,
			"link", i+1,
			"of", len(ops),
		)

		query := pollQuery
		if query == "" {
			query = op.Kind.PollQuery()
		}

		res, err := w.poller.WaitUntilZero(ctx, query, w.pollOpts)
		report.Poll = res
		report.States = append(report.States, res.Status.OperationState())
		if err != nil {
			report.Err = fmt.Errorf("wait %s: %w", op, err)
			return report
		}

		if !res.Completed() {
			if i < len(ops)-1 {
				report.Err = fmt.Errorf("%w: %s did not complete within %s", ErrChainAborted, op, w.pollOpts.Timeout)
				return report
			}
			continue
		}

		logger.Info("operation completed",
			"attempts", res.Attempts,
			"elapsed", res.Elapsed,
		)
	}

	return report
}

// Handle — запущенный в горутине worker.
type Handle struct {
	done   chan struct{}
	report Report
}

// Start запускает RunChain в отдельной горутине.
// Паника внутри горутины поднимает событие с ErrWorkerPanic.
func (w *Worker) Start(ctx context.Context, ops []*domain.AdministrativeOperation, ev *syncevent.Event, pollQuery string) *Handle {
	h := &Handle{done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("%w: %v", ErrWorkerPanic, r)
				if ev != nil {
					ev.Set(err)
				}
				h.report.Err = err
				h.report.FinishedAt = time.Now()
				w.logger.Error("worker panicked", "panic", r)
			}
		}()

		h.report = w.RunChain(ctx, ops, ev, pollQuery)
	}()

	return h
}

// Done закрывается, когда worker завершился.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Join ждёт завершения worker-а и возвращает отчёт.
func (h *Handle) Join() Report {
	<-h.done
	return h.report
}
