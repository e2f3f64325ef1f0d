package model

import "time"

// Lockout reasons group breaches by how a reset treats them: daily-limit
// lockouts are cleared at the daily reset, the rest stay until expiry or an
// explicit operator clear.
const (
	LockoutReasonDailyLimit   = "daily_limit"
	LockoutReasonCadence      = "trade_cadence"
	LockoutReasonAuthAnomaly  = "auth_anomaly"
	LockoutReasonManual       = "manual"
	LockoutReasonUnrealizedPL = "unrealized_pl"
)

// Lockout is the durable record behind the lockout gate. Active=true always
// carries a reason and the rule that triggered it. LockedUntil nil means the
// lockout is permanent until explicitly cleared.
type Lockout struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AccountID   string     `gorm:"size:60;uniqueIndex;not null" json:"account_id"`
	Active      bool       `gorm:"not null" json:"active"`
	Reason      string     `gorm:"size:100" json:"reason"`
	RuleID      string     `gorm:"size:60" json:"rule_id"`
	LockedAt    time.Time  `json:"locked_at"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Lockout) TableName() string {
	return "lockouts"
}
