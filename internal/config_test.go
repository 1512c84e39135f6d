package internal

import (
	"strings"
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("BLUGE_FILEPATH", t.TempDir())
	t.Setenv("AUTH_SECRET", strings.Repeat("s", 32))

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.NoError(config.Validate())

	req.Equal(50, config.HistoryLimit)
	req.Equal(4096, config.MaxContentLength)
	req.Equal(500*time.Millisecond, config.SinkTimeout)
	req.Equal("localhost:8000", config.Addr())
	req.Equal([]string{"*"}, config.Origins())

	// Flood protection only, a fast typist never hits it
	req.Equal(30, config.RateLimitBurst)
	req.Equal(100*time.Millisecond, config.RateLimitRefill)
}

func TestConfig_Invalid(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Short secret", func(c *Config) { c.AuthSecret = "short" }},
		{"Ping after idle timeout", func(c *Config) { c.PingPeriod = 2 * c.IdleTimeout }},
		{"Replacement is not a single character", func(c *Config) { c.CharReplacement = "**" }},
		{"No history", func(c *Config) { c.HistoryLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			req.Error(config.Validate())
		})
	}
}

func validConfig() Config {
	return Config{
		Port:                 8000,
		BadgerFilepath:       "/tmp/badger",
		BlugeFilepath:        "/tmp/bluge",
		HistoryLimit:         50,
		MaxContentLength:     4096,
		BufferSize:           256,
		ConnectionBufferSize: 256,
		SinkTimeout:          time.Second,
		WriteTimeout:         time.Second,
		IdleTimeout:          time.Minute,
		PingPeriod:           time.Second,
		RestartInterval:      time.Second,
		MetricInterval:       time.Second,
		LatencyThreshold:     time.Second,
		ShutdownTimeout:      time.Second,
		AuthSecret:           strings.Repeat("s", 32),
		AuthTokenDuration:    time.Hour,
		RateLimitBurst:       5,
		RateLimitRefill:      time.Second,
		CharReplacement:      "*",
	}
}
