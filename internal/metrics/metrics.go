package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "symptom_checker"

// Metrics owns a private registry. All methods are safe on a nil receiver so
// components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	emergencies   *prometheus.CounterVec
	questions     *prometheus.CounterVec
	analyses      *prometheus.CounterVec
	matches       *prometheus.CounterVec
	llmAttempts   *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	historyWrites *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		emergencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "triage",
			Name:      "emergencies_total",
			Help:      "Inputs short-circuited by emergency triage",
		}, []string{"stage"}), // stage: start_check
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "question_sets_total",
			Help:      "Clarification question sets returned",
		}, []string{"outcome"}), // outcome: generated, fallback
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "results_total",
			Help:      "Analysis results returned",
		}, []string{"outcome", "urgency"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "matches_total",
			Help:      "Condition matching runs by strategy",
		}, []string{"strategy"}), // strategy: relevance, keyword, none
		llmAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "attempts_total",
			Help:      "Completion attempts by outcome",
		}, []string{"model", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of single completion attempts",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30},
		}, []string{"model", "status"}),
		historyWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "writes_total",
			Help:      "Query log writes by outcome",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpLatency,
		m.emergencies, m.questions, m.analyses, m.matches,
		m.llmAttempts, m.llmLatency, m.historyWrites,
	)
	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveEmergency(stage string) {
	if m == nil {
		return
	}
	m.emergencies.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveQuestions(fallback bool) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome(fallback)).Inc()
}

func (m *Metrics) ObserveAnalysis(urgency string, fallback bool) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome(fallback), urgency).Inc()
}

func (m *Metrics) ObserveMatch(strategy string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveCompletion(model string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmAttempts.WithLabelValues(model, status).Inc()
	m.llmLatency.WithLabelValues(model, status).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHistoryWrite(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.historyWrites.WithLabelValues(status).Inc()
}

func outcome(fallback bool) string {
	if fallback {
		return "fallback"
	}
	return "generated"
}
