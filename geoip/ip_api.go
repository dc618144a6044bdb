package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	ipAPISuccess = "success"
	ipAPISrc     = "http://ip-api.com/json"
	ipAPIMethod  = "GET"
)

func NewIPApiFinder(conf Config) Find {
	src := strings.TrimRight(conf.IPApiURL, "/")
	if src == "" {
		src = ipAPISrc
	}
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().SetTimeout(timeout)

	return func(ip string) (*Location, error) {
		logger := log.Error().Str("source", src).Str("method", ipAPIMethod)

		response, err := client.R().Get(fmt.Sprintf("%s/%s", src, ip))
		if err != nil {
			logger.Err(err).Msg("Failed to get data")

			return nil, err
		}

		if response.StatusCode() != http.StatusOK {
			err = fmt.Errorf("ip-api status %d", response.StatusCode())
			logger.Err(err).Msg("Unexpected status")

			return nil, err
		}

		loc := Location{}

		err = json.Unmarshal(response.Body(), &loc)
		if err != nil || loc.Status != ipAPISuccess {
			logger.Err(err).Str("body", response.String()).Msg("Failed to parse response")

			if err == nil {
				err = errors.New("ip-api error")
			}

			return nil, err
		}

		return &loc, nil
	}
}

// NewDBIPFinder exposes a Lookuper as a Find, mapping the provider labels
// onto a Location.
func NewDBIPFinder(lookuper *Lookuper, timeout time.Duration) Find {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return func(ip string) (*Location, error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := lookuper.Lookup(ctx, ip)
		if err != nil {
			return nil, err
		}

		return ToLocation(result), nil
	}
}

// ToLocation maps the db-ip labels of result onto a Location.
func ToLocation(result *LookupResult) *Location {
	props := result.Properties
	loc := &Location{
		Status:  ipAPISuccess,
		Country: props.String("Country"),
		Region:  props.String("State / Region"),
		City:    props.String("City"),
		Zip:     props.String("Zip code"),
		Isp:     props.String("ISP"),
		Org:     props.String("Organization"),
		As:      props.String("ASN"),
		Crawler: props.Bool(securityCrawler),
	}
	loc.Latitude, loc.Longitude = parseCoordinates(props.String("Coordinates"))

	return loc
}

func parseCoordinates(s string) (float64, float64) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0
	}

	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return 0, 0
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return 0, 0
	}

	return la, lo
}

// NewFinder returns the Find for the configured provider.
func NewFinder(conf Config, lookuper *Lookuper) Find {
	switch conf.Provider {
	case ProviderIPApi:
		return NewIPApiFinder(conf)
	case "", ProviderDBIP:
		return NewDBIPFinder(lookuper, conf.Timeout)
	default:
		log.Warn().Str("provider", conf.Provider).Msg("Unknown geoip provider, using dbip")

		return NewDBIPFinder(lookuper, conf.Timeout)
	}
}
