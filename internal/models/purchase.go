package models

import (
	"time"

	"gorm.io/gorm"
)

// Purchase is one VTU order (airtime, data, cable, electricity) paid from
// the wallet balance.
type Purchase struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Reference   string         `gorm:"size:128;uniqueIndex;not null" json:"reference"`
	ServiceType string         `gorm:"size:20;not null;index" json:"service_type"` // see domain service constants
	Provider    string         `gorm:"size:40;not null" json:"provider"`           // MTN, GLO, DSTV, IKEDC...
	Recipient   string         `gorm:"size:64;not null" json:"recipient"`          // phone, smartcard or meter number
	AmountKobo  int64          `gorm:"not null" json:"amount_kobo"`
	Status      string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	Token       string         `gorm:"size:128" json:"token,omitempty"`      // electricity token when applicable
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Purchase) TableName() string {
	return "purchases"
}
