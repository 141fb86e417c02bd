package models

import "time"

// Ledger job delivery states.
const (
	JobPending    = "PENDING"
	JobDelivered  = "DELIVERED"
	JobDeadLetter = "DEAD_LETTER"
)

// LedgerJob is a durable forwarding task. The webhook handler only
// enqueues; the forwarder dispatcher delivers with retry so the gateway
// response never waits on the ledger.
type LedgerJob struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"` // uuid
	TxRef       string     `gorm:"size:128;not null;index" json:"tx_ref"`
	Event       string     `gorm:"size:64;not null" json:"event"`
	Payload     []byte     `gorm:"type:blob;not null" json:"-"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	NextRunAt   time.Time  `gorm:"not null;index" json:"next_run_at"`
	LastError   string     `gorm:"size:512" json:"last_error,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (LedgerJob) TableName() string {
	return "ledger_jobs"
}
