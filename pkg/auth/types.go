package auth

import (
	"strings"
	"time"
)

// Role is the account role stored with every account
type Role string

const (
	RoleBasicUser Role = "basicuser" // Standard user surfaces only
	RoleAdmin     Role = "admin"     // Account administration
)

// Status is the account lifecycle state. Deactivation replaces deletion.
type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
)

// PlaceholderName is used when the identity provider returns no display name
const PlaceholderName = "Unknown"

// Account represents a locally stored account record
type Account struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Status Status `json:"status"`
}

// IsActive reports whether the account may hold a session
func (a *Account) IsActive() bool {
	return NormalizeStatus(string(a.Status)) == StatusActive
}

// NormalizeRole trims and lower-cases a role value. An empty value yields the default role.
func NormalizeRole(raw string) Role {
	r := strings.ToLower(strings.TrimSpace(raw))
	if r == "" {
		return RoleBasicUser
	}
	return Role(r)
}

// NormalizeStatus trims and lower-cases a status value. An empty value yields active.
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusActive
	}
	return Status(s)
}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	return r == RoleBasicUser || r == RoleAdmin
}

// Valid reports whether the status is one of the known statuses
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeactivated
}

// Session is the server-side snapshot bound to one browser context.
// Role and Status are copied at login; only Status is ever re-checked live.
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Refresh copies the mutable profile fields of an account into the snapshot
func (s *Session) Refresh(a *Account) {
	s.Name = a.Name
	s.Email = a.Email
}

// Destination is where the browser lands after a successful login
type Destination string

const (
	DestinationAdmin    Destination = "/admin_home"
	DestinationStandard Destination = "/basic_user_home"
	DestinationLogin    Destination = "/login"
	DestinationHome     Destination = "/"
)

// User-visible messages shared by the login flow and the access gate
const (
	MsgSuspended    = "Account suspended. Please contact support."
	MsgLoginFailed  = "An error occurred while logging in. Please try again."
	MsgNotLoggedIn  = "User not logged in"
	MsgUnauthorized = "Unauthorized"
	MsgUserNotFound = "User not found"
)

// DestinationFor returns the landing route for a role. The comparison tolerates
// case and surrounding whitespace.
func DestinationFor(role Role) Destination {
	if NormalizeRole(string(role)) == RoleAdmin {
		return DestinationAdmin
	}
	return DestinationStandard
}
