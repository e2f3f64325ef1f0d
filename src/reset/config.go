package reset

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ResetTime is the daily cutover in HH:MM, interpreted in ResetTimezone.
	ResetTime     string `envconfig:"RESET_TIME" default:"17:00"`
	ResetTimezone string `envconfig:"RESET_TIMEZONE" default:"America/New_York"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
