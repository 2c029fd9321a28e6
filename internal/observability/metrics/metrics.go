package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClientMetrics exposes counters/histograms for calls to the GoBarber API
// and for dashboard refreshes.
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loadsTotal      *prometheus.CounterVec
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gobarber",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total GoBarber API requests by operation and HTTP status",
		}, []string{"operation", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gobarber",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of GoBarber API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gobarber",
			Subsystem: "schedule",
			Name:      "loads_total",
			Help:      "Schedule loads by kind and outcome (applied, superseded, failed)",
		}, []string{"kind", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.loadsTotal)
	return m
}

// ObserveRequest records one finished request. status is the HTTP status code
// as text, or "error" when no response arrived.
func (m *ClientMetrics) ObserveRequest(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *ClientMetrics) ObserveLoad(kind, outcome string) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(kind, outcome).Inc()
}
