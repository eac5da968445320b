// Package auth implements request authentication for the sync resource:
// a shared-secret header compared in constant time, plus optional
// short-lived session tokens so the browser client does not have to attach
// the password to every request.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticator validates credentials against the configured sync password.
// A deployment without a password accepts everything.
type Authenticator struct {
	password  string
	secretKey []byte
	validity  time.Duration
}

func New(password string, validity time.Duration) *Authenticator {
	// token signing key derived from the password so no extra secret needs
	// configuring
	sum := sha256.Sum256([]byte("linkdeck-token:" + password))
	return &Authenticator{password: password, secretKey: sum[:], validity: validity}
}

// Enabled reports whether authentication is configured at all.
func (a *Authenticator) Enabled() bool {
	return a.password != ""
}

// CheckSecret compares the presented shared secret in constant time.
func (a *Authenticator) CheckSecret(candidate string) error {
	if !a.Enabled() {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(a.password)) != 1 {
		return common.ErrUnauthorized
	}
	return nil
}

type claims struct {
	jwt.RegisteredClaims
}

// IssueToken mints an HS256 session token with the configured validity.
func (a *Authenticator) IssueToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.validity)),
		},
	})

	return token.SignedString(a.secretKey)
}

// CheckToken verifies a session token previously issued by IssueToken.
func (a *Authenticator) CheckToken(tokenString string) error {
	if !a.Enabled() {
		return nil
	}

	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		return a.secretKey, nil
	})
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}
