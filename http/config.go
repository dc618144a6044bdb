package http

type Config struct {
	Host string `toml:"host" yaml:"host" env:"HTTP_HOST" env-default:"localhost"`
	Port int    `toml:"port" yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}
