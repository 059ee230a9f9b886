package model

import "time"

// PushSubscription holds one registered push delivery channel. A recipient
// may own many (one per installed device or browser instance); the endpoint
// itself is globally unique, which is what makes registration idempotent.
type PushSubscription struct {
	Endpoint       string    `gorm:"primaryKey" json:"endpoint"`
	RecipientPhone string    `gorm:"index;size:32;not null" json:"recipient_phone"`
	P256DH         string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth           string    `gorm:"not null" json:"auth"`
	UserAgent      string    `gorm:"size:512" json:"user_agent"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}
