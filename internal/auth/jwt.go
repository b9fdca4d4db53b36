package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/koopa0/shopfront/pkg/apperr"
)

// Claims is the access-token payload. No pack example or retrieved
// ecosystem library vendors a JWT implementation, so this is the one
// ambient piece built directly on stdlib crypto/hmac — see DESIGN.md.
type Claims struct {
	UserID    string    `json:"sub"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"exp"`
}

// Signer issues and verifies HS256-signed access tokens.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(userID, role string, ttl time.Duration) (string, error) {
	claims := Claims{UserID: userID, Role: role, ExpiresAt: time.Now().Add(ttl)}
	body, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(body)
	sig := s.sign(payload)
	return payload + "." + sig, nil
}

func (s *Signer) Verify(token string) (*Claims, *apperr.Error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, apperr.New(apperr.CodeInvalidToken, "malformed token")
	}
	payload, sig := parts[0], parts[1]

	expected := s.sign(payload)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return nil, apperr.New(apperr.CodeInvalidToken, "invalid token signature")
	}

	body, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperr.New(apperr.CodeInvalidToken, "invalid token payload")
	}
	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, apperr.New(apperr.CodeInvalidToken, "invalid token payload")
	}
	if time.Now().After(claims.ExpiresAt) {
		return nil, apperr.New(apperr.CodeTokenExpired, "token expired")
	}
	return &claims, nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

var errBadSecret = errors.New("jwt secret must be non-empty")

func ValidateSecret(secret string) error {
	if secret == "" {
		return errBadSecret
	}
	return nil
}
