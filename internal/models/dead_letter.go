package models

import "time"

// DeadLetter is a ledger delivery that exhausted its retries. Rows are
// kept durably for manual reconciliation and exposed on the admin API.
type DeadLetter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     string    `gorm:"size:36;uniqueIndex;not null" json:"job_id"`
	TxRef     string    `gorm:"size:128;not null;index" json:"tx_ref"`
	Event     string    `gorm:"size:64;not null" json:"event"`
	Payload   []byte    `gorm:"type:blob;not null" json:"-"`
	Attempts  int       `gorm:"not null" json:"attempts"`
	LastError string    `gorm:"size:512" json:"last_error"`
	CreatedAt time.Time `json:"created_at"`
}

func (DeadLetter) TableName() string {
	return "dead_letters"
}
