package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/shopfront/internal/eventlog"
)

func mustPayload(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func registeredEvent(t *testing.T) eventlog.Event {
	return eventlog.Event{
		EventType: EventRegistered,
		Version:   0,
		Payload:   mustPayload(t, RegisteredPayload{Email: "a@example.com", Name: "Ada", Role: RoleCustomer}),
	}
}

func TestLockout_LocksAfterFiveFailures(t *testing.T) {
	events := []eventlog.Event{registeredEvent(t)}
	for i := 0; i < 5; i++ {
		events = append(events, eventlog.Event{EventType: EventLoginFailed, Version: len(events)})
	}
	lockedUntil := time.Now().Add(15 * time.Minute)
	events = append(events, eventlog.Event{
		EventType: EventAccountLocked, Version: len(events),
		Payload: mustPayload(t, AccountLockedPayload{LockedUntil: lockedUntil}),
	})

	u := LoadFromEvents("u1", events)
	assert.Equal(t, 5, u.FailedLoginAttempts)
	assert.True(t, u.IsLocked(time.Now()))
	assert.False(t, u.IsLocked(lockedUntil.Add(time.Minute)))
}

func TestLockout_UnlockResetsCounterAndLock(t *testing.T) {
	events := []eventlog.Event{
		registeredEvent(t),
		{EventType: EventLoginFailed, Version: 1},
		{EventType: EventLoginFailed, Version: 2},
		{EventType: EventAccountLocked, Version: 3, Payload: mustPayload(t, AccountLockedPayload{LockedUntil: time.Now().Add(time.Hour)})},
		{EventType: EventAccountUnlocked, Version: 4},
	}

	u := LoadFromEvents("u1", events)
	assert.Equal(t, 0, u.FailedLoginAttempts)
	assert.Nil(t, u.LockedUntil)
	assert.False(t, u.IsLocked(time.Now()))
}

func TestRegistered_DefaultsToCustomerRole(t *testing.T) {
	events := []eventlog.Event{{
		EventType: EventRegistered, Version: 0,
		Payload: mustPayload(t, RegisteredPayload{Email: "b@example.com", Name: "Bea"}),
	}}

	u := LoadFromEvents("u2", events)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.True(t, u.Exists())
}

func TestPasswordResetEvents_NeverChangeReplayedState(t *testing.T) {
	events := []eventlog.Event{
		registeredEvent(t),
		{EventType: EventPasswordResetRequested, Version: 1},
		{EventType: EventPasswordReset, Version: 2},
	}

	u := LoadFromEvents("u1", events)
	assert.Equal(t, 0, u.FailedLoginAttempts)
	assert.Nil(t, u.LockedUntil)
	assert.Equal(t, 2, u.Version)
}
