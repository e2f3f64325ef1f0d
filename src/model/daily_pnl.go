package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPnL holds one row per account per trading day. Realized accumulates
// the venue-reported P&L of every trade for that day and is only ever zeroed
// by the daily reset opening a new day row.
type DailyPnL struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	AccountID  string          `gorm:"size:60;index:idx_pnl_account_day,unique;not null" json:"account_id"`
	TradingDay string          `gorm:"size:10;index:idx_pnl_account_day,unique;not null" json:"trading_day"` // YYYY-MM-DD in the reset timezone
	Realized   decimal.Decimal `gorm:"type:numeric(24,8)" json:"realized"`
	TradeCount int             `json:"trade_count"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (DailyPnL) TableName() string {
	return "daily_pnls"
}
