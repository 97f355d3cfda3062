package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andres10976/certcheck/internal/model"
)

// Collector owns its own registry so tests and multiple servers in one
// process don't collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	probes        *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	daysRemaining *prometheus.GaugeVec
	expiry        *prometheus.GaugeVec
	watchUp       *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certcheck_probes_total",
				Help: "TLS probes performed, by result status",
			},
			[]string{"status"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "certcheck_probe_duration_seconds",
				Help:    "Time spent on a single TLS probe",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"status"},
		),
		daysRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "certcheck_watch_days_remaining",
				Help: "Whole days until a watched certificate expires",
			},
			[]string{"domain"},
		),
		expiry: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "certcheck_watch_expiry_timestamp_seconds",
				Help: "Expiry of a watched certificate in Unix time",
			},
			[]string{"domain"},
		),
		watchUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "certcheck_watch_ok",
				Help: "1 if the last probe of a watched domain returned ok, 0 otherwise",
			},
			[]string{"domain"},
		),
	}

	c.registry.MustRegister(
		c.probes,
		c.probeDuration,
		c.daysRemaining,
		c.expiry,
		c.watchUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveProbe(res model.ProbeResult, elapsed time.Duration) {
	status := string(res.Status)
	c.probes.WithLabelValues(status).Inc()
	c.probeDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// SetWatched records the latest result for a watched domain. Expiry
// gauges are dropped when the domain stops returning ok so stale values
// don't linger.
func (c *Collector) SetWatched(res model.ProbeResult) {
	domain := res.DomainString()
	if res.Status != model.StatusOK {
		c.watchUp.WithLabelValues(domain).Set(0)
		c.daysRemaining.DeleteLabelValues(domain)
		c.expiry.DeleteLabelValues(domain)
		return
	}
	c.watchUp.WithLabelValues(domain).Set(1)
	c.daysRemaining.WithLabelValues(domain).Set(float64(*res.DaysRemaining))
	c.expiry.WithLabelValues(domain).Set(float64(res.Expiry.Unix()))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
