package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// Recipient is an addressable alert consumer, identified by phone number.
// Deactivation is the soft-delete path; history keeps referencing the
// phone even after an account is turned off.
type Recipient struct {
	Phone        string     `gorm:"primaryKey;size:32" json:"phone"`
	Name         string     `gorm:"size:128;not null" json:"name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"is_admin"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"-"`
}

// Validate checks the fields an admin supplies when creating an account.
func (r Recipient) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required, validation.Match(phonePattern)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
	)
}
