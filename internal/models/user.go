package models

import (
	"time"

	"github.com/lib/pq"
)

// User is an account in the school content-management product. user_type is
// one of teacher, admin or parent; parents may log in by phone number alone.
type User struct {
	UserID       string         `db:"user_id" json:"user_id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Salt         string         `db:"salt" json:"-"`
	Name         string         `db:"name" json:"name"`
	UserType     string         `db:"user_type" json:"user_type"`
	ClassAccess  pq.StringArray `db:"class_access" json:"class_access"`
	SchoolID     string         `db:"school_id" json:"school_id"`
	PhoneNumber  string         `db:"phone_number" json:"phone_number,omitempty"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login"`
}
