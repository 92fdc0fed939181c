package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/conflictsuite/internal/matrix"
	"github.com/shaiso/conflictsuite/internal/mq"
	"github.com/shaiso/conflictsuite/internal/orchestrator"
	"github.com/shaiso/conflictsuite/internal/repo"
	"github.com/shaiso/conflictsuite/internal/telemetry"
)

// shutdownTimeout — сколько ждать завершения HTTP-запросов при остановке.
const shutdownTimeout = 10 * time.Second

// App — зависимости, общие для команд, работающих с кластером.
// Создаётся в PersistentPreRunE после разбора флагов.
type App struct {
	Config   Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *telemetry.Metrics

	suitePath string
	rules     []string
}

// newApp собирает App: логгер, реестр метрик с Go/process коллекторами.
func newApp(cfg Config, logger *slog.Logger, suitePath string, rules []string) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  reg,
		Metrics:   telemetry.NewMetrics(reg),
		suitePath: suitePath,
		rules:     rules,
	}
}

// Suite загружает матрицу (--suite) и оставляет правила из --rule.
func (a *App) Suite() (*matrix.Suite, error) {
	suite, err := matrix.LoadFile(a.suitePath)
	if err != nil {
		return nil, err
	}
	return suite.Filter(a.rules)
}

// Orchestrator создаёт раннер матрицы поверх кластера из конфигурации.
func (a *App) Orchestrator(suite *matrix.Suite, recorder orchestrator.Recorder, verifyAccepted, failFast bool) (*orchestrator.Orchestrator, error) {
	dialer, err := a.Config.Dialer(a.Logger)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(orchestrator.Config{
		Dialer:         dialer,
		Suite:          suite,
		Cluster:        a.Config.ClusterName(),
		VerifyAccepted: verifyAccepted,
		FailFast:       failFast,
		Recorder:       recorder,
		Logger:         a.Logger,
		Metrics:        a.Metrics,
	})
}

// Recorders подключает хранилище и RabbitMQ, если они настроены.
// cleanup закрывает всё открытое; вызывать всегда, даже при ошибке.
func (a *App) Recorders(ctx context.Context, store, publish bool) (orchestrator.Recorder, *repo.Store, func(), error) {
	var recorders []orchestrator.Recorder
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var st *repo.Store
	if store {
		pool, err := repo.NewPool(ctx, a.Config.DBURL)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("results store: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			return nil, nil, cleanup, err
		}
		st = repo.NewStore(pool)
		recorders = append(recorders, st)
		a.Logger.Info("results store connected")
	}

	if publish {
		conn, err := mq.NewConnection(mq.ConnectionConfig{
			URL:       a.Config.RabbitURL,
			Name:      "conflictsuite-publisher",
			OnConnect: mq.DeclareTopology,
			Logger:    a.Logger,
		})
		if err != nil {
			return nil, st, cleanup, fmt.Errorf("results publisher: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		recorders = append(recorders, mq.NewPublisher(conn, a.Logger))
		a.Logger.Debug("rabbitmq topology ready", "topology", mq.TopologyInfo())
	}

	if len(recorders) == 0 {
		return nil, st, cleanup, nil
	}
	return orchestrator.NewMultiRecorder(recorders...), st, cleanup, nil
}

// MetricsHandler отдаёт реестр процесса.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
}

// serveHTTP обслуживает handler до отмены ctx, затем делает graceful shutdown.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", addr, err)
	}
	logger.Info("http server stopped", "addr", addr)
	return nil
}
