package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Alert is one immutable message record. Targets empty means broadcast to
// every active recipient. Only ReadBy may change after creation, and it
// only ever grows.
type Alert struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	Body      string    `gorm:"not null" json:"body"`
	Link      string    `gorm:"size:512" json:"link,omitempty"`
	Location  string    `gorm:"size:256" json:"location,omitempty"`
	Source    string    `gorm:"size:128" json:"source"`
	Targets   []string  `gorm:"serializer:json" json:"targets"`
	ReadBy    []string  `gorm:"serializer:json" json:"read_by"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// Broadcast reports whether the alert targets all active recipients.
func (a Alert) Broadcast() bool {
	return len(a.Targets) == 0
}

// VisibleTo implements the visibility rule shared by the initial load and
// every delta load: empty target list, or the recipient is listed.
func (a Alert) VisibleTo(phone string) bool {
	if len(a.Targets) == 0 {
		return true
	}
	for _, t := range a.Targets {
		if t == phone {
			return true
		}
	}
	return false
}

// IsReadBy reports whether the recipient has acknowledged the alert.
func (a Alert) IsReadBy(phone string) bool {
	for _, p := range a.ReadBy {
		if p == phone {
			return true
		}
	}
	return false
}

// Validate checks admin-supplied fields before the alert is persisted.
func (a Alert) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Title, validation.Required, validation.Length(1, 256)),
		validation.Field(&a.Body, validation.Required),
		validation.Field(&a.Link, is.URL),
	)
}
