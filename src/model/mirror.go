package model

import "time"

const (
	PositionDirectionLong  = "long"
	PositionDirectionShort = "short"
)

// MirroredPosition is the durable snapshot of one venue position as last seen
// on the stream. The in-memory mirror is authoritative while the process is
// up; these rows only seed the mirror before the first reconciliation after
// a restart.
type MirroredPosition struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PositionID string    `gorm:"size:60;uniqueIndex;not null" json:"position_id"`
	AccountID  string    `gorm:"size:60;index;not null" json:"account_id"`
	Symbol     string    `gorm:"size:60;not null" json:"symbol"`
	Direction  string    `gorm:"size:10;not null" json:"direction"`
	Size       int       `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	OpenedAt   time.Time `json:"opened_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (MirroredPosition) TableName() string {
	return "mirrored_positions"
}

const (
	OrderStateWorking   = "working"
	OrderStateFilled    = "filled"
	OrderStateCancelled = "cancelled"
	OrderStateRejected  = "rejected"

	OrderKindMarket = "market"
	OrderKindLimit  = "limit"
	OrderKindStop   = "stop"

	OrderSideBuy  = "buy"
	OrderSideSell = "sell"
)

// MirroredOrder is the durable snapshot of one working venue order. Terminal
// orders are deleted rather than flagged; venue history is the system of
// record for anything that is no longer working.
type MirroredOrder struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    string    `gorm:"size:60;uniqueIndex;not null" json:"order_id"`
	AccountID  string    `gorm:"size:60;index;not null" json:"account_id"`
	Symbol     string    `gorm:"size:60;not null" json:"symbol"`
	Kind       string    `gorm:"size:20;not null" json:"kind"`
	Side       string    `gorm:"size:10;not null" json:"side"`
	Size       int       `json:"size"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
	StopPrice  *float64  `json:"stop_price,omitempty"`
	State      string    `gorm:"size:20;not null;default:working" json:"state"`
	PlacedAt   time.Time `json:"placed_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (MirroredOrder) TableName() string {
	return "mirrored_orders"
}

// TerminalOrderState reports whether a venue order state removes the order
// from the working set.
func TerminalOrderState(state string) bool {
	switch state {
	case OrderStateFilled, OrderStateCancelled, OrderStateRejected:
		return true
	}
	return false
}
