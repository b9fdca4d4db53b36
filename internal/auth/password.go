// Package auth implements password hashing and access/refresh token
// signing/verification, plus the token store backing single-use
// reset/verification tokens.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword is the one concrete implementation behind the "credential
// hashing is an opaque primitive" boundary — bcrypt is the ecosystem
// default rather than a hand-rolled scheme.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
