package rules

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries every rule's enable flag and thresholds. All limits follow
// the strict-inequality policy: a value exactly at the limit is not a breach.
type Config struct {
	MaxContractsEnabled bool `envconfig:"RULE_MAX_CONTRACTS_ENABLED" default:"true"`
	MaxContracts        int  `envconfig:"RULE_MAX_CONTRACTS" default:"5"`

	PerInstrumentEnabled bool `envconfig:"RULE_PER_INSTRUMENT_ENABLED" default:"false"`
	PerInstrumentMax     int  `envconfig:"RULE_PER_INSTRUMENT_MAX" default:"3"`

	DailyLossEnabled bool    `envconfig:"RULE_DAILY_LOSS_ENABLED" default:"true"`
	DailyLossLimit   float64 `envconfig:"RULE_DAILY_LOSS_LIMIT" default:"-500"`

	UnrealizedLossEnabled bool          `envconfig:"RULE_UNREALIZED_LOSS_ENABLED" default:"false"`
	UnrealizedLossLimit   float64       `envconfig:"RULE_UNREALIZED_LOSS_LIMIT" default:"-300"`
	UnrealizedLossLockout bool          `envconfig:"RULE_UNREALIZED_LOSS_LOCKOUT" default:"false"`
	UnrealizedLossLockFor time.Duration `envconfig:"RULE_UNREALIZED_LOSS_LOCK_FOR" default:"30m"`

	UnrealizedProfitEnabled bool    `envconfig:"RULE_UNREALIZED_PROFIT_ENABLED" default:"false"`
	UnrealizedProfitTarget  float64 `envconfig:"RULE_UNREALIZED_PROFIT_TARGET" default:"1000"`

	FrequencyEnabled bool          `envconfig:"RULE_FREQUENCY_ENABLED" default:"false"`
	FrequencyMax     int           `envconfig:"RULE_FREQUENCY_MAX" default:"10"`
	FrequencyLockFor time.Duration `envconfig:"RULE_FREQUENCY_LOCK_FOR" default:"1h"`

	CooldownEnabled  bool          `envconfig:"RULE_COOLDOWN_ENABLED" default:"false"`
	CooldownDuration time.Duration `envconfig:"RULE_COOLDOWN_DURATION" default:"15m"`

	GraceEnabled bool          `envconfig:"RULE_STOP_GRACE_ENABLED" default:"false"`
	GracePeriod  time.Duration `envconfig:"RULE_STOP_GRACE_PERIOD" default:"2m"`

	AutoStopEnabled bool `envconfig:"RULE_AUTO_STOP_ENABLED" default:"false"`
	AutoStopTicks   int  `envconfig:"RULE_AUTO_STOP_TICKS" default:"40"`

	HoursEnabled  bool   `envconfig:"RULE_HOURS_ENABLED" default:"false"`
	HoursOpen     string `envconfig:"RULE_HOURS_OPEN" default:"18:00"`
	HoursClose    string `envconfig:"RULE_HOURS_CLOSE" default:"17:00"`
	HoursTimezone string `envconfig:"RULE_HOURS_TIMEZONE" default:"America/New_York"`

	BlockedSymbolsEnabled bool     `envconfig:"RULE_BLOCKED_SYMBOLS_ENABLED" default:"false"`
	BlockedSymbols        []string `envconfig:"RULE_BLOCKED_SYMBOLS" default:""`

	AuthGuardEnabled bool     `envconfig:"RULE_AUTH_GUARD_ENABLED" default:"true"`
	AuthGuardEvents  []string `envconfig:"RULE_AUTH_GUARD_EVENTS" default:"login_failure,token_reuse,concurrent_session"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
