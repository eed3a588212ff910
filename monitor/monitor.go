// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/ludoclient/logger"
)

type Metrics struct {
	EventsApplied   *prometheus.CounterVec
	EventsIgnored   *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	RequestFailures *prometheus.CounterVec
	InGame          prometheus.Gauge
	Spectating      prometheus.Gauge
}

func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Reducer events that produced a new snapshot",
		}, []string{"event"}),
		EventsIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ignored_total",
			Help:      "Inbound or reducer events that were dropped",
		}, []string{"event"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "Round trip of correlated requests to the authority",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"op"}),
		RequestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Lifecycle operations that failed, by reason",
		}, []string{"op", "reason"}),
		InGame: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_game",
			Help:      "1 while a session is active",
		}),
		Spectating: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spectating",
			Help:      "1 while a game is being spectated",
		}),
	}

	registerer.MustRegister(
		m.EventsApplied,
		m.EventsIgnored,
		m.RequestLatency,
		m.RequestFailures,
		m.InGame,
		m.Spectating,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// NewMonitor creates a monitor with its own registry so several clients can live in one process.
func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	return &Monitor{
		metrics:   NewMetrics(namespace, registry),
		registry:  registry,
		startTime: time.Now(),
	}
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

var publishOnce sync.Once

func (m *Monitor) StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})
	mux.Handle("/debug/vars", expvar.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Errorf("Metrics server stopped: %v", err)
		}
	}()
	return srv
}

// The methods below are nil-safe so components can run without a monitor.

func (m *Monitor) EventApplied(name string) {
	if m == nil {
		return
	}
	m.metrics.EventsApplied.WithLabelValues(name).Inc()
}

func (m *Monitor) EventIgnored(name string) {
	if m == nil {
		return
	}
	m.metrics.EventsIgnored.WithLabelValues(name).Inc()
}

func (m *Monitor) ObserveRequest(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.RequestLatency.WithLabelValues(op).Observe(duration.Seconds())
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) RequestFailed(op, reason string) {
	if m == nil {
		return
	}
	m.metrics.RequestFailures.WithLabelValues(op, reason).Inc()
}

func (m *Monitor) SetMembership(inGame, spectating bool) {
	if m == nil {
		return
	}
	m.metrics.InGame.Set(boolToFloat(inGame))
	m.metrics.Spectating.Set(boolToFloat(spectating))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
