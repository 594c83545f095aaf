package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsum"

// Outcome labels of a summarize request.
const (
	OutcomeSuccess     = "success"
	OutcomeCached      = "cached"
	OutcomeInvalid     = "invalid"
	OutcomeLoadFailed  = "load_failed"
	OutcomeLLMFailed   = "llm_failed"
	OutcomeRateLimited = "rate_limited"
)

// Metrics owns a private registry so that tests and several instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	SummariesTotal      *prometheus.CounterVec
	SummaryDuration     *prometheus.HistogramVec
	LLMTokensTotal      *prometheus.CounterVec
	SourceWords         *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HistoryPrunedTotal  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SummariesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "summary",
				Name:      "requests_total",
				Help:      "Total number of summarize requests",
			},
			[]string{"kind", "outcome"},
		),

		SummaryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "summary",
				Name:      "duration_seconds",
				Help:      "Time to load and summarize a source",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"kind"},
		),

		LLMTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "tokens_total",
				Help:      "LLM tokens used",
			},
			[]string{"model", "type"},
		),

		SourceWords: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "summary",
				Name:      "source_words",
				Help:      "Word count of summarized sources",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 7),
			},
			[]string{"kind"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),

		HistoryPrunedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "history",
				Name:      "pruned_total",
				Help:      "History rows removed by retention",
			},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveSummary(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.SummariesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeSuccess {
		m.SummaryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveTokens(model string, prompt, completion int64) {
	if m == nil {
		return
	}

	m.LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(prompt))
	m.LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completion))
}

func (m *Metrics) ObserveSourceWords(kind string, words int) {
	if m == nil {
		return
	}

	m.SourceWords.WithLabelValues(kind).Observe(float64(words))
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) AddPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}

	m.HistoryPrunedTotal.Add(float64(n))
}
