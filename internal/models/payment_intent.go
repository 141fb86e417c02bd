package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentIntent is one wallet-funding attempt. TxRef is the correlation
// key across the gateway webhook, the verification endpoint and the ledger.
type PaymentIntent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	TxRef       string         `gorm:"size:128;uniqueIndex;not null" json:"tx_ref"`
	AmountKobo  int64          `gorm:"not null" json:"amount_kobo"`
	Currency    string         `gorm:"size:3;not null;default:'NGN'" json:"currency"`
	Status      string         `gorm:"size:20;not null;index" json:"status"` // see domain intent constants
	Flagged     bool           `gorm:"not null;default:false" json:"flagged"` // amount/currency mismatch, manual review
	FlagReason  string         `gorm:"size:255" json:"flag_reason,omitempty"`
	GatewayRef  string         `gorm:"size:128;index" json:"gateway_ref"` // Flutterwave transaction id, set on settlement
	PaymentLink string         `gorm:"size:512" json:"-"`
	ExpiresAt   time.Time      `json:"expires_at"`
	SettledAt   *time.Time     `json:"settled_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}
