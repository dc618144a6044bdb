package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/AwareRO/surveymeta/config"
	"github.com/AwareRO/surveymeta/dashboard"
	"github.com/AwareRO/surveymeta/geoip"
	libhttp "github.com/AwareRO/surveymeta/http"
	"github.com/AwareRO/surveymeta/http/identity"
	"github.com/AwareRO/surveymeta/http/middlewares"
	"github.com/AwareRO/surveymeta/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml or toml config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	collector := metrics.NewDefaultCollector()
	lookuper := geoip.NewDBIPLookuper(cfg.GeoIP, geoip.WithObserver(metrics.NewLookupMetrics(collector)))
	wrapper := middlewares.NewDurationMetricWrapper(collector, cfg.Metrics, geoip.NewFinder(cfg.GeoIP, lookuper))
	builder := dashboard.NewBuilder(lookuper, identity.NewMileusna())

	router := libhttp.NewRouter(lookuper, builder, wrapper)

	if err := libhttp.RunServerWithMetrics(&cfg.HTTP, router, collector); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
