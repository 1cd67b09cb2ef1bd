// Package metrics exposes the door's operational counters for Prometheus
// scraping.  The scrape listener is optional; an empty listen address
// disables it while the counters keep updating.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pkt.systems/pslog"
)

type Metrics struct {
	registry *prometheus.Registry

	// Touches counts processed access events by outcome.
	Touches *prometheus.CounterVec
	// Actuations counts completed lock/unlock movements.
	Actuations *prometheus.CounterVec
	// ActuationErrors counts hardware failures routed to the error flow.
	ActuationErrors prometheus.Counter
	// NotifyDelivered counts records removed from the queue after every
	// endpoint confirmed delivery.
	NotifyDelivered prometheus.Counter
	// NotifyRequeued counts head-requeues after a delivery failure.
	NotifyRequeued prometheus.Counter
	// NotifyDropped counts records dropped by the queue cap policy.
	NotifyDropped prometheus.Counter
	// QueueDepth tracks pending notification records.
	QueueDepth prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Touches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartdoor_touches_total",
			Help: "Access events processed, by outcome.",
		}, []string{"outcome"}),
		Actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartdoor_actuations_total",
			Help: "Completed lock actuations, by action.",
		}, []string{"action"}),
		ActuationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartdoor_actuation_errors_total",
			Help: "Hardware actuation failures.",
		}),
		NotifyDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartdoor_notifications_delivered_total",
			Help: "Notification records delivered to all endpoints.",
		}),
		NotifyRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartdoor_notifications_requeued_total",
			Help: "Notification records requeued after a delivery failure.",
		}),
		NotifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartdoor_notifications_dropped_total",
			Help: "Notification records dropped by the queue cap.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartdoor_notification_queue_depth",
			Help: "Pending notification records.",
		}),
	}

	reg.MustRegister(
		m.Touches, m.Actuations, m.ActuationErrors,
		m.NotifyDelivered, m.NotifyRequeued, m.NotifyDropped, m.QueueDepth,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the scrape listener.  The returned server is already
// serving; shut it down with Shutdown.
func (m *Metrics) Serve(listen string, logger pslog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics.server.failed", "error", err)
		}
	}()

	logger.Info("metrics.enabled", "listen", ln.Addr().String())
	return srv, nil
}

// Shutdown stops a server returned by Serve.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
