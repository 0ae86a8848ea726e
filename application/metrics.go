package application

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "smtprovider"

// Metrics holds the server's prometheus collectors. It also counts
// tree loads and updates reported by the provider.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	treeLoads prometheus.Counter
	treeSets  prometheus.Counter
}

// NewMetrics creates the collectors in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests handled, by method and JSON-RPC result code.",
		}, []string{"method", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling a request, by method.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"method"}),
		treeLoads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tree_loads_total",
			Help:      "Trees rebuilt from the database.",
		}),
		treeSets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "leaf_updates_total",
			Help:      "Leaf writes applied to stored trees.",
		}),
	}
}

// ObserveRequest records one handled request. code is 0 for success.
func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	if method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(method).Observe(d.Seconds())
}

// TreeLoaded counts a tree rebuilt from the database.
func (m *Metrics) TreeLoaded(id string, leaves int) {
	m.treeLoads.Inc()
}

// TreeUpdated counts leaf writes applied to a tree.
func (m *Metrics) TreeUpdated(id string, updates int) {
	m.treeSets.Add(float64(updates))
}

// Handler returns the HTTP handler exposing the collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ServeMetrics exposes the collectors on addr under /metrics until
// the server base is shut down.
func (sb *ServerBase) ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sb.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	sb.RunInBackground(func() {
		<-sb.stop
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	sb.RunInBackground(func() {
		sb.logger.Info("Serving metrics", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sb.logger.Error(err.Error(), "address", addr)
		}
	})
}
