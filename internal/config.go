package internal

import (
	"strings"
	"time"
)

type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=4040"`

	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	UploadsDir     string `env:"UPLOADS_DIR,default=./data/uploads"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:5173"`
	SecureCookies  bool   `env:"SECURE_COOKIES,default=true"`

	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	// Heartbeat protocol: a probe every ProbeInterval, eviction
	// DeathTimeout after an unanswered probe.
	ProbeInterval time.Duration `env:"PROBE_INTERVAL,default=5s"`
	DeathTimeout  time.Duration `env:"DEATH_TIMEOUT,default=1s"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=500ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
}

// Origins splits the comma separated allowlist.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
