package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the registry the service exports on /metrics.
type Collector interface {
	GetHttpHandler() http.Handler
	RegisterMetric(metric prometheus.Collector)
	WithPrefix(prefix string) Collector
}

type CollectorDefault struct {
	registry   *prometheus.Registry
	registerer prometheus.Registerer
}

func NewDefaultCollector() Collector {
	registry := prometheus.NewRegistry()
	return &CollectorDefault{registry: registry, registerer: registry}
}

// WithPrefix returns a collector sharing the registry whose metrics are
// registered under prefix.
func (c *CollectorDefault) WithPrefix(prefix string) Collector {
	if prefix == "" {
		return c
	}
	return &CollectorDefault{
		registry:   c.registry,
		registerer: prometheus.WrapRegistererWithPrefix(prefix+"_", c.registerer),
	}
}

func (c *CollectorDefault) RegisterMetric(metric prometheus.Collector) {
	c.registerer.MustRegister(metric)
}

func (c *CollectorDefault) GetHttpHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
