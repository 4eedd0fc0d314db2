package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan and checkout outcomes used as the "result" label.
const (
	ResultOK         = "ok"
	ResultInvalid    = "invalid"
	ResultNotFound   = "not_found"
	ResultOutOfStock = "out_of_stock"
	ResultError      = "error"
)

// Metrics holds the POS counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	scans           *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	unauthorizedHit prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_scans_total",
				Help: "Scan attempts by outcome",
			},
			[]string{"result"},
		),
		checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_checkouts_total",
				Help: "Checkout attempts by outcome",
			},
			[]string{"result"},
		),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_api_requests_total",
				Help: "Backend API requests by route and status",
			},
			[]string{"route", "status"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pos_api_request_duration_seconds",
				Help:    "Backend API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		unauthorizedHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_forced_logouts_total",
			Help: "Forced logouts after the backend rejected the session token",
		}),
	}

	m.registry.MustRegister(m.scans, m.checkouts, m.apiRequests, m.apiDuration, m.unauthorizedHit)
	return m
}

func (m *Metrics) Scan(result string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(result).Inc()
}

func (m *Metrics) Checkout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

// APIRequest records one backend call. status is 0 for transport failures.
func (m *Metrics) APIRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.apiRequests.WithLabelValues(route, label).Inc()
	m.apiDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ForcedLogout() {
	if m == nil {
		return
	}
	m.unauthorizedHit.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
