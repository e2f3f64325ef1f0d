package model

import "time"

// AccountResetState tracks the last trading day each account was reset for.
// On startup any account whose LastResetDay precedes the current trading day
// gets its reset replayed before the stream is consumed.
type AccountResetState struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountID    string    `gorm:"size:60;uniqueIndex;not null" json:"account_id"`
	LastResetDay string    `gorm:"size:10" json:"last_reset_day"` // YYYY-MM-DD in the reset timezone
	LastResetAt  time.Time `json:"last_reset_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AccountResetState) TableName() string {
	return "account_reset_states"
}

// Account is a configured trading account the engine supervises. Credentials
// are stored encrypted (see src/security) and decrypted once at startup.
type Account struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountID    string    `gorm:"size:60;uniqueIndex;not null" json:"account_id"`
	Name         string    `gorm:"size:100" json:"name"`
	APIKeyEnc    string    `gorm:"size:255" json:"-"`
	APISecretEnc string    `gorm:"size:255" json:"-"`
	Enabled      bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
