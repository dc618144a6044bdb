package geoip

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned when a provider page yields no properties.
var ErrNoData = errors.New("geoip: no data extracted")

type Location struct {
	Status      string  `json:"status"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Isp         string  `json:"isp"`
	Org         string  `json:"org"`
	As          string  `json:"as"`
	Crawler     bool    `json:"-"`
}

type Find func(ip string) (*Location, error)

// Fetcher retrieves the raw provider page for an address. Failures are
// reported as an empty body.
type Fetcher interface {
	Fetch(ctx context.Context, ip string) (string, time.Duration)
}

// Cache stores lookup results by address.
type Cache interface {
	Get(key string) (*LookupResult, bool)
	Put(key string, value *LookupResult)
}

// Observer is notified about every lookup. Source is "cache" or "fetch".
type Observer interface {
	ObserveLookup(source string, elapsed time.Duration, found bool)
}
