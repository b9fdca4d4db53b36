package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/shopfront/pkg/apperr"
)

// TokenStore backs refresh tokens plus single-use password-reset and
// email-verification tokens. Rows are marked used=true after consumption;
// expired rows raise VERIFICATION_TOKEN_EXPIRED, used/missing rows raise
// VERIFICATION_TOKEN_USED.
type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// --- refresh tokens ---

func (s *TokenStore) IssueRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at, revoked, created_at) VALUES ($1,$2,$3,false,now())`,
		token, userID, time.Now().Add(ttl))
	return token, err
}

func (s *TokenStore) VerifyRefreshToken(ctx context.Context, token string) (string, *apperr.Error) {
	var userID string
	var expiresAt time.Time
	var revoked bool
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, expires_at, revoked FROM refresh_tokens WHERE token=$1`, token,
	).Scan(&userID, &expiresAt, &revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.New(apperr.CodeInvalidRefreshToken, "invalid refresh token")
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	if revoked || time.Now().After(expiresAt) {
		return "", apperr.New(apperr.CodeInvalidRefreshToken, "invalid refresh token")
	}
	return userID, nil
}

func (s *TokenStore) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked=true WHERE token=$1`, token)
	return err
}

// RevokeAllRefreshTokens invalidates every refresh token for a user —
// called after a completed password reset.
func (s *TokenStore) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked=true WHERE user_id=$1`, userID)
	return err
}

// --- single-use verification/reset tokens ---

type tokenKind string

const (
	kindPasswordReset     tokenKind = "password_reset_tokens"
	kindEmailVerification tokenKind = "email_verification_tokens"
)

func (s *TokenStore) issueSingleUse(ctx context.Context, kind tokenKind, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+string(kind)+` (token, user_id, expires_at, used, created_at) VALUES ($1,$2,$3,false,now())`,
		token, userID, time.Now().Add(ttl))
	return token, err
}

// validateSingleUse checks a token without marking it used. Missing or
// already-used rows raise VERIFICATION_TOKEN_USED; expired-but-unused
// rows raise VERIFICATION_TOKEN_EXPIRED.
func (s *TokenStore) validateSingleUse(ctx context.Context, kind tokenKind, token string) (string, *apperr.Error) {
	var userID string
	var expiresAt time.Time
	var used bool
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, expires_at, used FROM `+string(kind)+` WHERE token=$1`, token,
	).Scan(&userID, &expiresAt, &used)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.New(apperr.CodeVerificationTokenUsed, "token not found")
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	if used {
		return "", apperr.New(apperr.CodeVerificationTokenUsed, "token already used")
	}
	if time.Now().After(expiresAt) {
		return "", apperr.New(apperr.CodeVerificationTokenExpired, "token expired")
	}
	return userID, nil
}

// markSingleUseUsed spends the token. Call only after whatever the token
// authorizes has durably happened — a crash between validate and mark
// must leave the token retryable, not leave its effect unconfirmed.
func (s *TokenStore) markSingleUseUsed(ctx context.Context, kind tokenKind, token string) error {
	_, err := s.pool.Exec(ctx, `UPDATE `+string(kind)+` SET used=true WHERE token=$1`, token)
	return err
}

// consumeSingleUse validates and marks the row used in one call, for
// callers where the two steps carry no ordering risk.
func (s *TokenStore) consumeSingleUse(ctx context.Context, kind tokenKind, token string) (string, *apperr.Error) {
	userID, appErr := s.validateSingleUse(ctx, kind, token)
	if appErr != nil {
		return "", appErr
	}
	tag, err := s.pool.Exec(ctx, `UPDATE `+string(kind)+` SET used=true WHERE token=$1 AND used=false`, token)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return "", apperr.New(apperr.CodeVerificationTokenUsed, "token already used")
	}
	return userID, nil
}

func (s *TokenStore) IssuePasswordResetToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	return s.issueSingleUse(ctx, kindPasswordReset, userID, ttl)
}

// ConsumePasswordResetToken validates and spends the token in one call.
// The spend is a conditional update, so of two concurrent callers only
// one gets the user ID. The token is spent before the caller writes the
// new password hash.
func (s *TokenStore) ConsumePasswordResetToken(ctx context.Context, token string) (string, *apperr.Error) {
	return s.consumeSingleUse(ctx, kindPasswordReset, token)
}

func (s *TokenStore) IssueEmailVerificationToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	return s.issueSingleUse(ctx, kindEmailVerification, userID, ttl)
}

// ValidateEmailVerificationToken checks the token without spending it.
// The caller must mark it used with MarkEmailVerificationTokenUsed only
// after EmailVerified has been durably applied.
func (s *TokenStore) ValidateEmailVerificationToken(ctx context.Context, token string) (string, *apperr.Error) {
	return s.validateSingleUse(ctx, kindEmailVerification, token)
}

func (s *TokenStore) MarkEmailVerificationTokenUsed(ctx context.Context, token string) error {
	return s.markSingleUseUsed(ctx, kindEmailVerification, token)
}
