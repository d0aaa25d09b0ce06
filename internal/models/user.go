package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account as stored by the identity provider. Passwords and tokens are
// managed outside this service; only the hash is kept for seeding.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	PasswordHash string    `gorm:"size:150;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:'user'" json:"-"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
