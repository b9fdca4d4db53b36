package command

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/shopfront/internal/auth"
	userdom "github.com/koopa0/shopfront/internal/domain/user"
	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/pkg/apperr"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type RegisterResult struct {
	UserID            string
	VerificationToken string
}

// Register validates email/password shape, rejects duplicate emails,
// hashes the password, appends UserRegistered, and issues a
// time-limited email-verification token.
func (h *Handlers) Register(ctx context.Context, in RegisterInput) (RegisterResult, *apperr.Error) {
	if !looksLikeEmail(in.Email) {
		return RegisterResult{}, apperr.New(apperr.CodeInvalidEmail, "invalid email address").WithFields("email")
	}
	if len(in.Password) < minPasswordLength {
		return RegisterResult{}, apperr.New(apperr.CodeInvalidPassword, "password too short").WithFields("password")
	}

	exists, err := h.Query.EmailExists(ctx, in.Email)
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}
	if exists {
		return RegisterResult{}, apperr.New(apperr.CodeDuplicateEmail, "email already registered").WithFields("email")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}

	userID := uuid.NewString()
	payload, err := json.Marshal(userdom.RegisteredPayload{Email: in.Email, Name: in.Name, Role: userdom.RoleCustomer})
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateUser, userID, 0, []eventlog.NewEvent{
		{EventType: userdom.EventRegistered, Payload: payload},
	}); err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: userID, Version: 1, EventType: userdom.EventRegistered, Payload: payload}
	if err := h.UserProj.Apply(ctx, ev); err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}
	if err := h.Query.SetPasswordHash(ctx, userID, hash); err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}

	token, err := h.Tokens.IssueEmailVerificationToken(ctx, userID, h.Cfg.EmailVerifyTTL)
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}

	return RegisterResult{UserID: userID, VerificationToken: token}, nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// Login is rate-limited and lockout-enforcing: a wrong password on an
// already-unlocked account increments the failure counter and locks the
// account on the threshold-th consecutive failure; a correct password on
// an unlocked-but-previously-failing account resets it.
func (h *Handlers) Login(ctx context.Context, in LoginInput) (LoginResult, *apperr.Error) {
	if h.LoginLimit != nil {
		allowed, err := h.LoginLimit.Allow(ctx, "login:"+in.Email)
		if err != nil {
			return LoginResult{}, apperr.Internal(err)
		}
		if !allowed {
			return LoginResult{}, apperr.New(apperr.CodeInvalidCredentials, "too many login attempts")
		}
	}

	row, err := h.Query.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	if row == nil {
		return LoginResult{}, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
	}

	events, err := h.Log.Load(ctx, row.ID)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	u := userdom.LoadFromEvents(row.ID, events)
	if u.IsLocked(time.Now()) {
		return LoginResult{}, apperr.New(apperr.CodeAccountLocked, "account is locked")
	}

	if !auth.VerifyPassword(row.PasswordHash, in.Password) {
		if appErr := h.recordLoginFailure(ctx, u); appErr != nil {
			return LoginResult{}, appErr
		}
		return LoginResult{}, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
	}

	if u.FailedLoginAttempts > 0 {
		if err := h.Log.Append(ctx, eventlog.AggregateUser, u.ID, u.Version, []eventlog.NewEvent{
			{EventType: userdom.EventAccountUnlocked, Payload: []byte("{}")},
		}); err != nil {
			return LoginResult{}, apperr.Internal(err)
		}
		ev := eventlog.Event{AggregateID: u.ID, Version: u.Version + 1, EventType: userdom.EventAccountUnlocked, Payload: []byte("{}")}
		if err := h.UserProj.Apply(ctx, ev); err != nil {
			return LoginResult{}, apperr.Internal(err)
		}
	}

	accessToken, err := h.Signer.Sign(u.ID, string(u.Role), h.Cfg.AccessTokenTTL)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	refreshToken, err := h.Tokens.IssueRefreshToken(ctx, u.ID, h.Cfg.RefreshTokenTTL)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}

	return LoginResult{UserID: u.ID, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// recordLoginFailure appends LoginFailed and, on crossing the lockout
// threshold, AccountLocked in the same call — both events apply to the
// projection immediately so a concurrent read sees the lock without
// waiting on a second command.
func (h *Handlers) recordLoginFailure(ctx context.Context, u *userdom.User) *apperr.Error {
	if err := h.Log.Append(ctx, eventlog.AggregateUser, u.ID, u.Version, []eventlog.NewEvent{
		{EventType: userdom.EventLoginFailed, Payload: []byte("{}")},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: u.ID, Version: u.Version + 1, EventType: userdom.EventLoginFailed, Payload: []byte("{}")}
	if err := h.UserProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	u.Apply(ev)

	if u.FailedLoginAttempts >= h.Cfg.LockoutThreshold {
		payload, err := json.Marshal(userdom.AccountLockedPayload{LockedUntil: time.Now().Add(h.Cfg.LockoutDuration)})
		if err != nil {
			return apperr.Internal(err)
		}
		if err := h.Log.Append(ctx, eventlog.AggregateUser, u.ID, u.Version, []eventlog.NewEvent{
			{EventType: userdom.EventAccountLocked, Payload: payload},
		}); err != nil {
			return apperr.Internal(err)
		}
		lockedEv := eventlog.Event{AggregateID: u.ID, Version: u.Version + 1, EventType: userdom.EventAccountLocked, Payload: payload}
		if err := h.UserProj.Apply(ctx, lockedEv); err != nil {
			return apperr.Internal(err)
		}
	}
	return nil
}

func (h *Handlers) Logout(ctx context.Context, refreshToken string) error {
	return h.Tokens.RevokeRefreshToken(ctx, refreshToken)
}

// RefreshAccessToken verifies the refresh token and reissues a new access
// token without reissuing the refresh token itself.
func (h *Handlers) RefreshAccessToken(ctx context.Context, refreshToken string) (string, *apperr.Error) {
	userID, appErr := h.Tokens.VerifyRefreshToken(ctx, refreshToken)
	if appErr != nil {
		return "", appErr
	}
	row, err := h.Query.GetUserByID(ctx, userID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if row == nil {
		return "", apperr.New(apperr.CodeUserNotFound, "user not found")
	}
	token, err := h.Signer.Sign(row.ID, row.Role, h.Cfg.AccessTokenTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

func looksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.Contains(s[at+1:], "@") && strings.Contains(s[at+1:], ".")
}
