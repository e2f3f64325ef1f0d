package engine

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// EventBuffer sizes the inbound event lane channel.
	EventBuffer int `envconfig:"ENGINE_EVENT_BUFFER" default:"1024"`

	// SweepInterval drives lockout expiry and timer firing; ResetInterval
	// drives the daily-reset check.
	SweepInterval time.Duration `envconfig:"ENGINE_SWEEP_INTERVAL" default:"1s"`
	ResetInterval time.Duration `envconfig:"ENGINE_RESET_INTERVAL" default:"10s"`

	// FlushInterval and FlushThreshold bound how much batched (asynchronous)
	// durable state a crash can lose.
	FlushInterval  time.Duration `envconfig:"ENGINE_FLUSH_INTERVAL" default:"5s"`
	FlushThreshold int           `envconfig:"ENGINE_FLUSH_THRESHOLD" default:"256"`

	// TradeWindow is the rolling window behind the trade-frequency counters.
	TradeWindow time.Duration `envconfig:"ENGINE_TRADE_WINDOW" default:"1h"`
	// QuoteMaxAge marks cached quotes older than this as stale.
	QuoteMaxAge time.Duration `envconfig:"ENGINE_QUOTE_MAX_AGE" default:"30s"`

	// SyncWriteRetries bounds the synchronous retry of lockout/P&L durable
	// writes before the failure is treated as fatal.
	SyncWriteRetries int           `envconfig:"ENGINE_SYNC_WRITE_RETRIES" default:"3"`
	SyncWriteBackoff time.Duration `envconfig:"ENGINE_SYNC_WRITE_BACKOFF" default:"250ms"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
