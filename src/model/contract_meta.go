package model

import "time"

// ContractMeta maps an instrument to its tick geometry. Immutable once
// fetched; a cached row is never refreshed because the venue never changes
// tick size/value for a listed contract.
type ContractMeta struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	InstrumentID string    `gorm:"size:60;uniqueIndex;not null" json:"instrument_id"`
	Symbol       string    `gorm:"size:60;index" json:"symbol"`
	TickSize     float64   `json:"tick_size"`
	TickValue    float64   `json:"tick_value"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ContractMeta) TableName() string {
	return "contract_metas"
}
