package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voltalis"

// Metrics records Voltalis API and poll cycle outcomes on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	logins   *prometheus.CounterVec
	polls    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Voltalis API requests by method and status class.",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Voltalis API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Voltalis logins by result.",
		}, []string{"result"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(m.requests, m.latency, m.logins, m.polls)

	return m
}

func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) ObserveLogin(success bool) {
	if success {
		m.logins.WithLabelValues("success").Inc()
	} else {
		m.logins.WithLabelValues("failure").Inc()
	}
}

// ObservePoll counts a poll cycle. result is "success", "failed" or "unauthorized".
func (m *Metrics) ObservePoll(result string) {
	m.polls.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusClass maps a status to "2xx", "4xx", ... and connection failures to "error".
func statusClass(status int) string {
	if status == 0 {
		return "error"
	}

	return strconv.Itoa(status/100) + "xx"
}
