package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles. "blocked" is an overloaded role value rather than a
// separate status flag: a blocked account keeps no memory of its
// previous role and goes back to "user" on unblock.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleBlocked = "blocked"
)

type User struct {
	ID                 int       `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	Role               string    `json:"role"`
	TOTPSecret         string    `json:"-"`
	TOTPEnabled        bool      `json:"totp_enabled"`
	LastPasswordChange time.Time `json:"last_password_change,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// HashPassword generates bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares password with hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsBlocked reports whether the account is locked out of login.
func (u *User) IsBlocked() bool {
	return u.Role == RoleBlocked
}
