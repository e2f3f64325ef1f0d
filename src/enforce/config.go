package enforce

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RetryAttempts bounds every outbound venue call; RetryBackoff is the
	// fixed wait between attempts.
	RetryAttempts int           `envconfig:"ENFORCE_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff  time.Duration `envconfig:"ENFORCE_RETRY_BACKOFF" default:"2s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
