package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one executed trade, kept durably so that rolling-window
// counts survive a restart and can be audited against the in-memory window.
type TradeRecord struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	TradeID    string          `gorm:"size:60;uniqueIndex;not null" json:"trade_id"`
	AccountID  string          `gorm:"size:60;index:idx_trades_account_time;not null" json:"account_id"`
	Symbol     string          `gorm:"size:60;not null" json:"symbol"`
	Side       string          `gorm:"size:10" json:"side"`
	Size       int             `json:"size"`
	Price      float64         `json:"price"`
	PnL        decimal.Decimal `gorm:"type:numeric(24,8)" json:"pnl"`
	ExecutedAt time.Time       `gorm:"index:idx_trades_account_time" json:"executed_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (TradeRecord) TableName() string {
	return "trade_records"
}

// SessionMarker records when the current trading session started for an
// account. Session trade counts are trades executed at or after this mark.
type SessionMarker struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID string    `gorm:"size:60;uniqueIndex;not null" json:"account_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionMarker) TableName() string {
	return "session_markers"
}
