// Package metrics exposes gateway operations and BACnet traffic as
// Prometheus metrics.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bacnet "github.com/maxzerker/bacnet-rpc"
	"github.com/maxzerker/bacnet-rpc/gateway"
)

const namespace = "bacnet_rpc"

// Metrics implements gateway.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	BatchItems prometheus.Histogram
	Discovered prometheus.Counter
	Datagrams  *prometheus.CounterVec
	Bytes      *prometheus.CounterVec
}

// New registers the gateway collectors on a fresh registry. pending, when
// set, backs a gauge of outstanding confirmed requests.
func New(pending func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "operations_total",
				Help:      "Gateway operations by outcome (success or failure category)",
			},
			[]string{"operation", "outcome"},
		),

		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "operation_duration_seconds",
				Help:      "Gateway operation duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		BatchItems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "batch_items",
				Help:      "Items per read-multiple request",
				Buckets:   prometheus.LinearBuckets(1, 8, 8),
			},
		),

		Discovered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "discovered_devices_total",
				Help:      "Devices returned by Who-Is rounds",
			},
		),

		Datagrams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bacnet",
				Name:      "datagrams_total",
				Help:      "BACnet/IP datagrams by direction",
			},
			[]string{"direction"},
		),

		Bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bacnet",
				Name:      "bytes_total",
				Help:      "BACnet/IP payload bytes by direction",
			},
			[]string{"direction"},
		),
	}

	m.registry.MustRegister(
		m.Operations, m.Duration, m.BatchItems, m.Discovered, m.Datagrams, m.Bytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if pending != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bacnet",
				Name:      "pending_transactions",
				Help:      "Confirmed requests awaiting a reply",
			},
			func() float64 { return float64(pending()) },
		))
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Observe(e gateway.Event) {
	outcome := "success"
	if !e.Success {
		outcome = e.Category
	}
	m.Operations.WithLabelValues(e.Operation, outcome).Inc()
	m.Duration.WithLabelValues(e.Operation).Observe(e.Duration.Seconds())

	if !e.Success {
		return
	}
	switch e.Operation {
	case gateway.OpReadMultiple:
		m.BatchItems.Observe(float64(e.Items))
	case gateway.OpWhoIs:
		m.Discovered.Add(float64(e.Items))
	}
}

// Tap counts datagrams; it has the bacnet.TapFunc signature.
func (m *Metrics) Tap(dir bacnet.Direction, _, _ *net.UDPAddr, payload []byte) {
	m.Datagrams.WithLabelValues(dir.String()).Inc()
	m.Bytes.WithLabelValues(dir.String()).Add(float64(len(payload)))
}
