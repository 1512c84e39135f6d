package e2e

import (
	"time"

	env "github.com/Netflix/go-env"
)

type Config struct {
	// E2E_DEBUG_JSON dumps every frame exchanged with the server
	DebugJSON bool `env:"E2E_DEBUG_JSON,default=false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `env:"E2E_COLOURS,default=true"`
	// E2E_TIMEOUT bounds every wait on a frame or a condition
	Timeout time.Duration `env:"E2E_TIMEOUT,default=3s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	return cfg, err
}
