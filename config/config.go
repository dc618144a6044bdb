package config

import (
	"fmt"

	"github.com/AwareRO/surveymeta/geoip"
	"github.com/AwareRO/surveymeta/http"
	"github.com/AwareRO/surveymeta/http/middlewares"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
)

type Config struct {
	LogLevel string                    `toml:"log_level" yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     http.Config               `toml:"http" yaml:"http"`
	Metrics  middlewares.MetricsConfig `toml:"metrics" yaml:"metrics"`
	GeoIP    geoip.Config              `toml:"geoip" yaml:"geoip"`
}

// Load reads path when given and applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	switch cfg.GeoIP.Provider {
	case geoip.ProviderDBIP, geoip.ProviderIPApi:
	default:
		return fmt.Errorf("unknown geoip provider %q", cfg.GeoIP.Provider)
	}
	if cfg.GeoIP.Timeout <= 0 {
		return fmt.Errorf("geoip timeout must be positive, got %s", cfg.GeoIP.Timeout)
	}
	if cfg.GeoIP.CacheSize < 0 {
		return fmt.Errorf("geoip cache_size must not be negative, got %d", cfg.GeoIP.CacheSize)
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", cfg.HTTP.Port)
	}

	return nil
}

// Level returns the configured log level.
func (cfg *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Usage describes the environment variables Load understands.
func Usage() string {
	text, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
