package geoip

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	ProviderDBIP  = "dbip"
	ProviderIPApi = "ip-api"
)

const (
	dbipSrc          = "http://db-ip.com/%s"
	dbipMethod       = "GET"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "surveymeta/1.0"
)

type Config struct {
	Provider    string        `toml:"provider" yaml:"provider" env:"GEOIP_PROVIDER" env-default:"dbip"`
	URLTemplate string        `toml:"url_template" yaml:"url_template" env:"GEOIP_URL_TEMPLATE" env-default:"http://db-ip.com/%s"`
	IPApiURL    string        `toml:"ipapi_url" yaml:"ipapi_url" env:"GEOIP_IPAPI_URL" env-default:"http://ip-api.com/json"`
	Timeout     time.Duration `toml:"timeout" yaml:"timeout" env:"GEOIP_TIMEOUT" env-default:"10s"`
	CacheSize   int           `toml:"cache_size" yaml:"cache_size" env:"GEOIP_CACHE_SIZE" env-default:"0"`
	Coalesce    bool          `toml:"coalesce" yaml:"coalesce" env:"GEOIP_COALESCE" env-default:"false"`
}

// DBIPFetcher downloads the db-ip.com page for an address.
type DBIPFetcher struct {
	client      *resty.Client
	urlTemplate string
}

func NewDBIPFetcher(conf Config) *DBIPFetcher {
	urlTemplate := conf.URLTemplate
	if urlTemplate == "" {
		urlTemplate = dbipSrc
	}
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &DBIPFetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", defaultUserAgent),
		urlTemplate: urlTemplate,
	}
}

func (f *DBIPFetcher) Fetch(ctx context.Context, ip string) (string, time.Duration) {
	url := fmt.Sprintf(f.urlTemplate, ip)
	logger := log.With().Str("source", url).Str("method", dbipMethod).Logger()

	start := time.Now()
	response, err := f.client.R().
		SetContext(ctx).
		Get(url)
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn().Err(err).Msg("Failed to get data")

		return "", elapsed
	}

	if response.StatusCode() != http.StatusOK {
		logger.Warn().Int("status", response.StatusCode()).Msg("Unexpected status")

		return "", elapsed
	}

	return response.String(), elapsed
}
