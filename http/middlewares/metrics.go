package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AwareRO/surveymeta/geoip"
	"github.com/AwareRO/surveymeta/http/identity"
	"github.com/AwareRO/surveymeta/metrics"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type MetricsConfig struct {
	App                string `toml:"app" yaml:"app" env:"METRICS_APP_VALUE" env-default:"surveymeta"`
	PrometheusHost     string `toml:"prometheus_host" yaml:"prometheus_host" env:"PROMETHEUS_HOST"`
	PrometheusUsername string `toml:"prometheus_username" yaml:"prometheus_username" env:"PROMETHEUS_USERNAME"`
	PrometheusPassword string `toml:"prometheus_password" yaml:"prometheus_password" env:"PROMETHEUS_PASSWORD"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

type ResetTick func(wrapper *durationMetricWrapper)

type durationMetricWrapper struct {
	Collector       metrics.Collector
	durations       *prometheus.HistogramVec
	dailyRequests   *prometheus.CounterVec
	monthlyRequests *prometheus.CounterVec
	resetTick       ResetTick
	app             string
	querier         *metrics.Querier
	find            geoip.Find
	isCrawler       identity.IsCrawler
}

func NewDefaultDurationMetricWrapper(conf MetricsConfig, find geoip.Find) *durationMetricWrapper {
	return (&durationMetricWrapper{}).init(metrics.NewDefaultCollector(), conf, find)
}

func NewDurationMetricWrapper(collector metrics.Collector, conf MetricsConfig, find geoip.Find) *durationMetricWrapper {
	return (&durationMetricWrapper{}).init(collector, conf, find)
}

func (wrapper *durationMetricWrapper) Wrap(nextHandler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		recorder := &statusRecorder{w, http.StatusOK}
		start := time.Now()
		ctx := geoip.WithMemo(r.Context())

		nextHandler(recorder, r.WithContext(ctx), params)

		elapsed := time.Since(start)
		endpoint := strings.Split(r.URL.String(), "?")[0]
		method := r.Method
		status := strconv.Itoa(recorder.status)
		ip := identity.ClientIP(r)
		crawler := wrapper.isCrawler(r.UserAgent())
		lat := ""
		lon := ""
		country := "Unknown"

		if wrapper.find != nil && ip != "" {
			loc, err := geoip.Remembered(ctx, wrapper.find)(ip)
			if err == nil {
				lat = fmt.Sprintf("%f", loc.Latitude)
				lon = fmt.Sprintf("%f", loc.Longitude)
				if loc.Country != "" {
					country = loc.Country
				}
				crawler = crawler || loc.Crawler
			} else {
				log.Debug().Err(err).Str("ip", ip).Msg("No location for request")
			}
		}

		crawlerLabel := strconv.FormatBool(crawler)
		wrapper.durations.
			WithLabelValues(wrapper.app, endpoint, method, status).Observe(float64(elapsed.Milliseconds()))
		wrapper.dailyRequests.
			WithLabelValues(wrapper.app, endpoint, method, status, ip, lat, lon, country, crawlerLabel).Inc()
		wrapper.monthlyRequests.
			WithLabelValues(wrapper.app, endpoint, method, status, ip, lat, lon, country, crawlerLabel).Inc()
	}
}

func (wrapper *durationMetricWrapper) init(collector metrics.Collector, conf MetricsConfig, find geoip.Find) *durationMetricWrapper {
	wrapper.resetTick = defaultTick
	wrapper.app = conf.App
	wrapper.find = find
	wrapper.isCrawler = identity.NewMileusna()
	if conf.PrometheusHost != "" {
		wrapper.querier = metrics.NewQuerier(conf.PrometheusHost, conf.PrometheusUsername, conf.PrometheusPassword)
	}
	wrapper.initializeMetrics()
	wrapper.Collector = collector
	wrapper.registerMetrics()
	wrapper.restoreMetrics()

	go func() {
		logger := log.With().Str("goroutine", "http metrics ticker").Logger()
		for {
			now := time.Now()
			nextWait := time.Until(time.Date(
				now.Year(), now.Month(), now.Day(),
				0, 0, 0, 0,
				now.Location(),
			).AddDate(0, 0, 1))
			logger.Info().Msgf("Sleeping %v", nextWait)
			time.Sleep(nextWait)
			logger.Info().Msg("reseting counters")
			wrapper.resetTick(wrapper)
		}
	}()

	return wrapper
}

func defaultTick(wrapper *durationMetricWrapper) {
	wrapper.dailyRequests.Reset()
	if time.Now().Day() == 1 {
		wrapper.monthlyRequests.Reset()
	}
}

func (wrapper *durationMetricWrapper) initializeMetrics() {
	wrapper.durations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "http_server",
			Name:      "request_duration_milliseconds",
			Help:      "Histogram of response time for handler in milliseconds",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"app", "endpoint", "method", "status"},
	)
	wrapper.dailyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "http_server",
			Name:      "request_count_daily",
			Help:      "Counts daily http requests",
		},
		[]string{"app", "endpoint", "method", "status", "ip", "lat", "lon", "country", "crawler"},
	)
	wrapper.monthlyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "http_server",
			Name:      "request_count_monthly",
			Help:      "Counts monthly http requests",
		},
		[]string{"app", "endpoint", "method", "status", "ip", "lat", "lon", "country", "crawler"},
	)
}

func (wrapper *durationMetricWrapper) registerMetrics() {
	wrapper.Collector.RegisterMetric(wrapper.durations)
	log.Info().Str("name", "http_server_request_duration_milliseconds").
		Str("type", "histogram_vec").
		Msg("registered new metric")
	wrapper.Collector.RegisterMetric(wrapper.dailyRequests)
	log.Info().Str("name", "http_server_request_count_daily").
		Str("type", "counter_vec").
		Msg("registered new metric")
	wrapper.Collector.RegisterMetric(wrapper.monthlyRequests)
	log.Info().Str("name", "http_server_request_count_monthly").
		Str("type", "counter_vec").
		Msg("registered new metric")
}

// restoreMetrics reloads the counters from Prometheus so a restart does not
// zero the current day and month.
func (wrapper *durationMetricWrapper) restoreMetrics() {
	if wrapper.querier == nil {
		return
	}
	wrapper.restoreMetric("http_server_request_count_daily", wrapper.dailyRequests)
	wrapper.restoreMetric("http_server_request_count_monthly", wrapper.monthlyRequests)
}

func (wrapper *durationMetricWrapper) restoreMetric(name string, metric *prometheus.CounterVec) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r, err := wrapper.querier.Query(ctx, name, wrapper.app)
	if err != nil {
		log.Error().Err(err).Str("metric", name).Msg("Failed prometheus request")
		return
	}

	for _, m := range r.Data.Result {
		value, ok := m.Count()
		if !ok || value < 0 {
			continue
		}
		metric.WithLabelValues(wrapper.app,
			m.Metric.Endpoint, m.Metric.Method, m.Metric.Status,
			m.Metric.IP, m.Metric.Latitude, m.Metric.Longitude, m.Metric.Country, m.Metric.Crawler,
		).Add(value)
	}
}
