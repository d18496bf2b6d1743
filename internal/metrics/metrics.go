package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	analysesTotal     *prometheus.CounterVec
	analysisDuration  prometheus.Histogram
	sourceLookups     *prometheus.HistogramVec
	sourceFailures    *prometheus.CounterVec
	inferenceRequests *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantengine_analyses_total",
			Help: "Total number of analysis requests",
		},
		[]string{"status"},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quantengine_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.sourceLookups = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quantengine_source_lookup_duration_seconds",
			Help:    "Per-source lookup duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	r.sourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantengine_source_failures_total",
			Help: "Total number of data source failures",
		},
		[]string{"source", "reason"},
	)
	r.inferenceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantengine_inference_requests_total",
			Help: "Total number of inference requests",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.analysesTotal)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.sourceLookups)
	reg.MustRegister(r.sourceFailures)
	reg.MustRegister(r.inferenceRequests)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordAnalysis records a completed analysis request.
func (r *Registry) RecordAnalysis(status string, duration float64) {
	r.analysesTotal.WithLabelValues(status).Inc()
	r.analysisDuration.Observe(duration)
}

// RecordSourceLookup records a data source lookup duration.
func (r *Registry) RecordSourceLookup(source string, duration float64) {
	r.sourceLookups.WithLabelValues(source).Observe(duration)
}

// RecordSourceFailure records a data source failure.
func (r *Registry) RecordSourceFailure(source, reason string) {
	r.sourceFailures.WithLabelValues(source, reason).Inc()
}

// RecordInference records an inference request outcome.
func (r *Registry) RecordInference(status string) {
	r.inferenceRequests.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
