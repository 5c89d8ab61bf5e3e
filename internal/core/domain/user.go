package domain

import (
	"errors"
	"time"
)

const (
	RoleManager     Role = "manager"
	RoleStoreKeeper Role = "store_keeper"
)

// DefaultEmailDomain is appended to usernames to build the address the
// credential service knows them by.
const DefaultEmailDomain = "miaoda.com"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrNoSession          = errors.New("no active session")
)

// Role is the authorization level carried by a profile.
type Role string

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleManager || r == RoleStoreKeeper
}

// User is the identity the credential service hands back with a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Credential is a stored login for the self-hosted backend.
type Credential struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the role-bearing record kept per user id.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsManager is false for a nil profile.
func (p *Profile) IsManager() bool {
	return p != nil && p.Role == RoleManager
}

// SyntheticEmail maps a username onto the address used for credential exchange.
func SyntheticEmail(username, emailDomain string) string {
	if emailDomain == "" {
		emailDomain = DefaultEmailDomain
	}
	return username + "@" + emailDomain
}
