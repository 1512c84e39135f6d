package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8000" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true" validate:"required"`

	HistoryLimit         int `env:"HISTORY_LIMIT,default=50" validate:"min=1,max=1000"`
	MaxContentLength     int `env:"MAX_CONTENT_LENGTH,default=4096" validate:"min=1"`
	BufferSize           int `env:"BUFFER_SIZE,default=256" validate:"min=1"`
	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"min=1"`

	SinkTimeout      time.Duration `env:"SINK_TIMEOUT,default=500ms" validate:"gt=0"`
	WriteTimeout     time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT,default=60s" validate:"gt=0"`
	PingPeriod       time.Duration `env:"PING_PERIOD,default=54s" validate:"gt=0,ltfield=IdleTimeout"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	MetricInterval   time.Duration `env:"METRIC_INTERVAL,default=1m" validate:"gt=0"`
	LatencyThreshold time.Duration `env:"LATENCY_THRESHOLD,default=250ms" validate:"gt=0"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true" validate:"required,min=32"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h" validate:"gt=0"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS,default=*"`

	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=30" validate:"min=1"`
	RateLimitRefill time.Duration `env:"RATE_LIMIT_REFILL,default=100ms" validate:"gt=0"`

	CensoredDir     string `env:"CENSORED_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

var validate = validator.New()

// Validate checks ranges and cross-field constraints once the environment is loaded.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	return strings.Split(c.AllowedOrigins, ",")
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
