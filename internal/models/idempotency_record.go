package models

import "time"

// IdempotencyRecord marks that a tx_ref has already produced its ledger
// effect. The unique index on TxRef is the single serialization point for
// concurrent webhook retries and poll verifications: whichever handler
// inserts first applies the effect, every later insert is a no-op.
type IdempotencyRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TxRef          string    `gorm:"size:128;uniqueIndex;not null" json:"tx_ref"`
	GatewayRef     string    `gorm:"size:128;not null" json:"gateway_ref"`
	Outcome        string    `gorm:"size:20;not null" json:"outcome"` // SETTLED | FAILED
	RawPayloadHash string    `gorm:"size:64" json:"-"`                // sha256 of the winning payload, for audit/replay checks
	CreatedAt      time.Time `json:"created_at"`
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}
