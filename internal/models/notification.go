package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Type      string         `gorm:"size:40;not null" json:"type"` // WALLET_FUNDED, PAYMENT_FAILED, PURCHASE_COMPLETED
	Title     string         `gorm:"size:255;not null" json:"title"`
	Body      string         `gorm:"size:1024" json:"body"`
	Read      bool           `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
