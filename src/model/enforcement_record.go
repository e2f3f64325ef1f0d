package model

import "time"

// Enforcement action kinds. One breach can fan out into several venue calls
// (close all = close positions + cancel orders) but each outbound attempt is
// audited under the kind that motivated it.
const (
	ActionClosePosition   = "close_position"
	ActionCloseAll        = "close_all"
	ActionCancelOrder     = "cancel_order"
	ActionCancelAll       = "cancel_all"
	ActionPlaceProtective = "place_protective_order"
	ActionSetLockout      = "set_lockout"
	ActionClearLockout    = "clear_lockout"
)

// EnforcementRecord is one append-only audit row per enforcement attempt.
// Rows are never updated after creation; a retried call writes a new row.
type EnforcementRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RecordID   string    `gorm:"size:60;uniqueIndex;not null" json:"record_id"`
	AccountID  string    `gorm:"size:60;index" json:"account_id"`
	RuleID     string    `gorm:"size:60;index" json:"rule_id"`
	ActionKind string    `gorm:"size:40;not null" json:"action_kind"`
	Reason     string    `gorm:"size:255" json:"reason"`
	Success    bool      `json:"success"`
	Error      *string   `json:"error,omitempty"`
	Attempt    int       `json:"attempt"`
	DurationMs int64     `json:"duration_ms"`
	Detail     string    `gorm:"type:text" json:"detail"`
	ExecutedAt time.Time `gorm:"index" json:"executed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (EnforcementRecord) TableName() string {
	return "enforcement_records"
}
