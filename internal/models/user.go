// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a portal account. Sysadmins hold global administrative
// capability; everything else is scoped through organization memberships.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:100;unique;not null" json:"username"`
	Email       string    `gorm:"unique;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	DisplayName string    `gorm:"size:200" json:"display_name"`
	Sysadmin    bool      `gorm:"not null;default:false" json:"sysadmin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Name returns the best human-readable name for notification emails.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
