package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// LookupMetrics counts geoip lookups by source and outcome.
type LookupMetrics struct {
	lookups *prometheus.CounterVec
	elapsed *prometheus.HistogramVec
}

func NewLookupMetrics(collector Collector) *LookupMetrics {
	m := &LookupMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: "geoip",
				Name:      "lookup_total",
				Help:      "Counts ip metadata lookups",
			},
			[]string{"source", "found"},
		),
		elapsed: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: "geoip",
				Name:      "lookup_elapsed_milliseconds",
				Help:      "Histogram of ip metadata lookup time in milliseconds",
				Buckets:   []float64{1, 5, 25, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"source"},
		),
	}

	collector.RegisterMetric(m.lookups)
	log.Info().Str("name", "geoip_lookup_total").
		Str("type", "counter_vec").
		Msg("registered new metric")
	collector.RegisterMetric(m.elapsed)
	log.Info().Str("name", "geoip_lookup_elapsed_milliseconds").
		Str("type", "histogram_vec").
		Msg("registered new metric")

	return m
}

func (m *LookupMetrics) ObserveLookup(source string, elapsed time.Duration, found bool) {
	m.lookups.WithLabelValues(source, strconv.FormatBool(found)).Inc()
	m.elapsed.WithLabelValues(source).Observe(float64(elapsed.Milliseconds()))
}
