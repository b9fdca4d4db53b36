// Package user implements the User aggregate: lockout recomputation,
// replay rules, and the event variants that drive them.
package user

import (
	"encoding/json"
	"time"

	"github.com/koopa0/shopfront/internal/eventlog"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// User is the replayed aggregate state. PasswordHash lives on the read
// model / command side only — it is never present in an event payload.
type User struct {
	ID                  string
	Email               string
	Name                string
	Role                Role
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	Version             int

	exists bool
}

func (u *User) Exists() bool { return u.exists }

func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Event variant payloads.
type RegisteredPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type AccountLockedPayload struct {
	LockedUntil time.Time `json:"locked_until"`
}

const (
	EventRegistered             = "UserRegistered"
	EventEmailVerified          = "EmailVerified"
	EventPasswordResetRequested = "PasswordResetRequested"
	EventPasswordReset          = "PasswordReset"
	EventLoginFailed            = "LoginFailed"
	EventAccountLocked          = "AccountLocked"
	EventAccountUnlocked        = "AccountUnlocked"
)

func New(id string) *User {
	return &User{ID: id}
}

// Apply folds a single event into the aggregate, recomputing lock state
// from AccountLocked/AccountUnlocked events as it goes.
func (u *User) Apply(e eventlog.Event) {
	switch e.EventType {
	case EventRegistered:
		var payload RegisteredPayload
		_ = json.Unmarshal(e.Payload, &payload)
		u.Email = payload.Email
		u.Name = payload.Name
		u.Role = payload.Role
		if u.Role == "" {
			u.Role = RoleCustomer
		}
		u.exists = true

	case EventEmailVerified:
		u.EmailVerified = true

	case EventLoginFailed:
		u.FailedLoginAttempts++

	case EventAccountLocked:
		var payload AccountLockedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		lockedUntil := payload.LockedUntil
		u.LockedUntil = &lockedUntil

	case EventAccountUnlocked:
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil

	case EventPasswordResetRequested, EventPasswordReset:
		// No replayed-state change: reset tokens live in their own table,
		// never in the aggregate, per the security invariant.
	}

	u.Version = e.Version
}

func LoadFromEvents(id string, events []eventlog.Event) *User {
	u := New(id)
	for _, e := range events {
		u.Apply(e)
	}
	return u
}
