// Package metrics provides Prometheus metrics for the form service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stillcare/carefront/pkg/disclosure"
)

// Metrics holds all application metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	DataServiceRequests *prometheus.CounterVec
	DataServiceDuration *prometheus.HistogramVec
	DisclosureRuns      *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DataServiceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carefront_dataservice_requests_total",
			Help: "Data service calls by resource, method and outcome",
		}, []string{"resource", "method", "outcome"}),
		DataServiceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carefront_dataservice_request_duration_seconds",
			Help:    "Data service call duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"resource"}),
		DisclosureRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carefront_disclosure_rules_applied_total",
			Help: "Disclosure rule applications by form and resulting state",
		}, []string{"form", "state"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carefront_http_requests_total",
			Help: "HTTP requests served by route pattern and status",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.DataServiceRequests,
		m.DataServiceDuration,
		m.DisclosureRuns,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDataService records one data service call. Its signature matches
// dataservice.RequestObserver.
func (m *Metrics) ObserveDataService(resource, method string, status int, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.DataServiceRequests.WithLabelValues(resource, method, outcome).Inc()
	m.DataServiceDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// ObserveDisclosure records one rule application. Its signature matches
// disclosure.Observer.
func (m *Metrics) ObserveDisclosure(event disclosure.Event) {
	state := "concealed"
	if event.State {
		state = "disclosed"
	}
	m.DisclosureRuns.WithLabelValues(event.Form, state).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
