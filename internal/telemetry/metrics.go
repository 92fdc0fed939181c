package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus метрики харнесса.
//
// Все методы безопасны для nil-получателя: компоненты, созданные
// без метрик (в тестах), просто ничего не регистрируют.
type Metrics struct {
	ruleOutcomes  *prometheus.CounterVec
	suiteRuns     *prometheus.CounterVec
	pollAttempts  *prometheus.CounterVec
	pollDuration  *prometheus.HistogramVec
	eventWait     prometheus.Histogram
	inFlightRules prometheus.Gauge
}

// NewMetrics создаёт и регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ruleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conflictsuite_rule_outcomes_total",
			Help: "Conflict rule checks by rule and outcome status",
		}, []string{"rule", "status"}),
		suiteRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conflictsuite_suite_runs_total",
			Help: "Completed conflict matrix runs by status",
		}, []string{"status"}),
		pollAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conflictsuite_poll_attempts_total",
			Help: "Introspection queries issued while waiting for transactions to clear",
		}, []string{"query"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conflictsuite_poll_duration_seconds",
			Help:    "Time spent waiting for transactions to clear",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"query", "status"}),
		eventWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "conflictsuite_event_wait_seconds",
			Help:    "Time between worker start and the operation being accepted",
			Buckets: prometheus.DefBuckets,
		}),
		inFlightRules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conflictsuite_rules_in_flight",
			Help: "Conflict rules currently being evaluated",
		}),
	}

	reg.MustRegister(
		m.ruleOutcomes,
		m.suiteRuns,
		m.pollAttempts,
		m.pollDuration,
		m.eventWait,
		m.inFlightRules,
	)

	return m
}

// ObserveOutcome учитывает результат правила.
func (m *Metrics) ObserveOutcome(rule, status string) {
	if m == nil {
		return
	}
	m.ruleOutcomes.WithLabelValues(rule, status).Inc()
}

// ObserveSuiteRun учитывает завершённый прогон.
func (m *Metrics) ObserveSuiteRun(status string) {
	if m == nil {
		return
	}
	m.suiteRuns.WithLabelValues(status).Inc()
}

// ObservePollAttempt учитывает один introspection-запрос.
func (m *Metrics) ObservePollAttempt(query string) {
	if m == nil {
		return
	}
	m.pollAttempts.WithLabelValues(query).Inc()
}

// ObservePoll учитывает завершённое ожидание.
func (m *Metrics) ObservePoll(query, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.pollDuration.WithLabelValues(query, status).Observe(d.Seconds())
}

// ObserveEventWait учитывает время ожидания сигнала worker-а.
func (m *Metrics) ObserveEventWait(d time.Duration) {
	if m == nil {
		return
	}
	m.eventWait.Observe(d.Seconds())
}

// RuleStarted / RuleFinished отслеживают правила в процессе проверки.
func (m *Metrics) RuleStarted() {
	if m == nil {
		return
	}
	m.inFlightRules.Inc()
}

func (m *Metrics) RuleFinished() {
	if m == nil {
		return
	}
	m.inFlightRules.Dec()
}
