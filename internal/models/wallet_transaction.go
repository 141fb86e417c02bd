package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletTransaction records credits/debits for wallet history (funding,
// VTU purchases, reversals).
type WalletTransaction struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	AmountKobo int64          `gorm:"not null" json:"amount_kobo"` // positive = credit, negative = debit
	Type       string         `gorm:"size:30;not null;index" json:"type"` // FUNDING, PURCHASE, REVERSAL
	Reference  string         `gorm:"size:128;index" json:"reference"`    // tx_ref or purchase reference
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
