package venue

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL   string `envconfig:"VENUE_BASE_URL" default:"https://demo-api.venue.example"`
	StreamURL string `envconfig:"VENUE_STREAM_URL" default:"wss://demo-stream.venue.example/events"`
	APIKey    string `envconfig:"VENUE_API_KEY" default:""`
	APISecret string `envconfig:"VENUE_API_SECRET" default:""`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
