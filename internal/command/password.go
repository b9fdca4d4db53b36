package command

import (
	"context"

	"github.com/koopa0/shopfront/internal/auth"
	userdom "github.com/koopa0/shopfront/internal/domain/user"
	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/pkg/apperr"
)

// RequestPasswordReset issues a single-use token valid for
// Cfg.PasswordResetTTL and returns it; it sends and enqueues no email. It
// never reveals whether the email exists — a missing account is a silent
// no-op, per the usual anti-enumeration posture.
func (h *Handlers) RequestPasswordReset(ctx context.Context, email string) (string, *apperr.Error) {
	row, err := h.Query.GetUserByEmail(ctx, email)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if row == nil {
		return "", nil
	}

	token, err := h.Tokens.IssuePasswordResetToken(ctx, row.ID, h.Cfg.PasswordResetTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}

	events, err := h.Log.Load(ctx, row.ID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	u := userdom.LoadFromEvents(row.ID, events)
	if err := h.Log.Append(ctx, eventlog.AggregateUser, row.ID, u.Version, []eventlog.NewEvent{
		{EventType: userdom.EventPasswordResetRequested, Payload: []byte("{}")},
	}); err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

// ConfirmPasswordReset consumes the token, sets the new password hash, and
// invalidates every outstanding refresh token for the user so a leaked
// session can't survive a reset.
func (h *Handlers) ConfirmPasswordReset(ctx context.Context, token, newPassword string) *apperr.Error {
	if len(newPassword) < minPasswordLength {
		return apperr.New(apperr.CodeInvalidPassword, "password too short").WithFields("password")
	}

	userID, appErr := h.Tokens.ConsumePasswordResetToken(ctx, token)
	if appErr != nil {
		return appErr
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Query.SetPasswordHash(ctx, userID, hash); err != nil {
		return apperr.Internal(err)
	}

	events, err := h.Log.Load(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	u := userdom.LoadFromEvents(userID, events)
	if err := h.Log.Append(ctx, eventlog.AggregateUser, userID, u.Version, []eventlog.NewEvent{
		{EventType: userdom.EventPasswordReset, Payload: []byte("{}")},
	}); err != nil {
		return apperr.Internal(err)
	}

	if err := h.Tokens.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// VerifyEmail validates the token, applies EmailVerified to the log and
// projection, and only then marks the token used. A crash or DB error
// between validation and the mark-used step leaves the token unspent, so
// retrying re-validates and re-applies (Apply is idempotent on a
// already-verified user) rather than losing the verification.
func (h *Handlers) VerifyEmail(ctx context.Context, token string) *apperr.Error {
	userID, appErr := h.Tokens.ValidateEmailVerificationToken(ctx, token)
	if appErr != nil {
		return appErr
	}

	events, err := h.Log.Load(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	u := userdom.LoadFromEvents(userID, events)
	if !u.Exists() {
		return apperr.New(apperr.CodeUserNotFound, "user not found")
	}

	if !u.EmailVerified {
		if err := h.Log.Append(ctx, eventlog.AggregateUser, userID, u.Version, []eventlog.NewEvent{
			{EventType: userdom.EventEmailVerified, Payload: []byte("{}")},
		}); err != nil {
			return apperr.Internal(err)
		}
		ev := eventlog.Event{AggregateID: userID, Version: u.Version + 1, EventType: userdom.EventEmailVerified, Payload: []byte("{}")}
		if err := h.UserProj.Apply(ctx, ev); err != nil {
			return apperr.Internal(err)
		}
	}

	if err := h.Tokens.MarkEmailVerificationTokenUsed(ctx, token); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
