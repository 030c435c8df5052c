package model

import (
	"fmt"
	"strings"
	"time"
)

// AccountInfo holds the personnel record shown on the account screen.
type AccountInfo struct {
	FirstName string `json:"firstName" toml:"first_name"`
	LastName  string `json:"lastName" toml:"last_name"`
	Gender    string `json:"gender" toml:"gender"`
	DOB       string `json:"DOB" toml:"dob"`
	Rank      string `json:"rank" toml:"rank"`
	Contact   string `json:"contact" toml:"contact"`
	Address   string `json:"address" toml:"address"`
}

// FullName joins first and last name.
func (a AccountInfo) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// String renders every field separated by spaces.
func (a AccountInfo) String() string {
	return strings.Join([]string{
		a.FirstName, a.LastName, a.Gender, a.DOB, a.Rank, a.Contact, a.Address,
	}, " ")
}

// User is a server-side account: credentials plus the personnel record.
type User struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	Profile      AccountInfo `json:"profile"`
	CreatedAt    time.Time   `json:"created_at"`
}

// MinPasswordLength is the shortest password accepted for new accounts.
const MinPasswordLength = 8

// ValidatePassword checks that a new password is long enough.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// SessionRecord is the server's view of a client login.
type SessionRecord struct {
	AuthToken string `json:"auth_token"`
	Username  string `json:"username"`
	StartedAt int64  `json:"started_at"`
}

// ExpiresAt returns when the session stops being valid for the given lifetime.
func (s SessionRecord) ExpiresAt(lifetime time.Duration) time.Time {
	return time.Unix(s.StartedAt, 0).Add(lifetime)
}
