package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
	"github.com/shaiso/conflictsuite/internal/telemetry"
)

// Default configuration values.
const (
	DefaultTimeout  = 300 * time.Second
	DefaultInterval = 1 * time.Second
)

// Options — бюджет ожидания.
type Options struct {
	// Timeout — общий бюджет. 0 — ровно один запрос. Отрицательный — ошибка.
	Timeout time.Duration

	// Interval — пауза между запросами (<= 0 → DefaultInterval).
	Interval time.Duration
}

// DefaultOptions возвращает бюджет по умолчанию: 300s с шагом 1s.
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, Interval: DefaultInterval}
}

// Result — итог ожидания.
type Result struct {
	// Status — COMPLETED, TIMED_OUT или CANCELLED.
	Status domain.PollStatus `json:"status"`

	// Attempts — сколько introspection-запросов выполнено.
	Attempts int `json:"attempts"`

	// LastCount — количество строк в последнем ответе.
	LastCount int `json:"last_count"`

	// Elapsed — сколько длилось ожидание.
	Elapsed time.Duration `json:"elapsed"`
}

// Completed возвращает true, если транзакции завершились.
func (r Result) Completed() bool {
	return r.Status == domain.PollStatusCompleted
}

// Poller повторяет introspection-запрос по своему соединению.
type Poller struct {
	conn    sqlconn.Conn
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Config — конфигурация Poller.
type Config struct {
	// Conn — соединение владельца (worker-а или coordinator-а).
	Conn sqlconn.Conn

	// Logger
	Logger *slog.Logger

	// Metrics (опционально)
	Metrics *telemetry.Metrics
}

// New создаёт Poller.
func New(cfg Config) *Poller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		conn:    cfg.Conn,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// Count выполняет introspection-запрос один раз и возвращает количество строк.
func (p *Poller) Count(ctx context.Context, query string) (int, error) {
	if query == "" {
		return 0, ErrEmptyQuery
	}

	p.metrics.ObservePollAttempt(query)

	res, err := p.conn.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrQueryFailed, query, err)
	}
	return res.RowCount(), nil
}

// WaitUntilZero повторяет query, пока он не вернёт 0 строк или не истечёт бюджет.
//
// Возвращает:
//   - Status=COMPLETED, nil — увидели 0 строк
//   - Status=TIMED_OUT, nil — бюджет исчерпан (мягкий исход, пишется WARN)
//   - Status=CANCELLED, ctx.Err() — ctx отменён
//   - error — запрос завершился ошибкой
func (p *Poller) WaitUntilZero(ctx context.Context, query string, opts Options) (Result, error) {
	if query == "" {
		return Result{}, ErrEmptyQuery
	}
	if opts.Timeout < 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNegativeTimeout, opts.Timeout)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	var result Result

	finish := func(status domain.PollStatus) Result {
		result.Status = status
		result.Elapsed = time.Since(start)
		p.metrics.ObservePoll(query, string(status), result.Elapsed)
		return result
	}

	for {
		count, err := p.Count(ctx, query)
		result.Attempts++
		if err != nil {
			if ctx.Err() != nil {
				return finish(domain.PollStatusCancelled), ctx.Err()
			}
			return finish(domain.PollStatusTimedOut), err
		}
		result.LastCount = count

		if count == 0 {
			p.logger.Info("transaction count became zero",
				"query", query,
				"attempts", result.Attempts,
			)
			return finish(domain.PollStatusCompleted), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			r := finish(domain.PollStatusTimedOut)
			p.logger.Warn("transactions not finished within poll budget",
				"query", query,
				"count", count,
				"attempts", r.Attempts,
				"timeout", opts.Timeout,
			)
			return r, nil
		}

		p.logger.Debug("waiting for transactions",
			"query", query,
			"count", count,
			"attempt", result.Attempts,
		)

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return finish(domain.PollStatusCancelled), ctx.Err()
		case <-timer.C:
		}
	}
}

// WaitAllZero ждёт обнуления каждого из запросов по очереди.
// Каждый запрос получает собственный бюджет opts.
// Останавливается на первом не-COMPLETED результате.
func (p *Poller) WaitAllZero(ctx context.Context, queries []string, opts Options) (Result, error) {
	total := Result{Status: domain.PollStatusCompleted}
	for _, q := range queries {
		r, err := p.WaitUntilZero(ctx, q, opts)
		total.Attempts += r.Attempts
		total.Elapsed += r.Elapsed
		total.LastCount = r.LastCount
		total.Status = r.Status
		if err != nil || !r.Completed() {
			return total, err
		}
	}
	return total, nil
}
