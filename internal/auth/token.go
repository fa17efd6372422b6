// Package auth signs and validates the one-shot tokens the backend mails
// out: email verification links and password reset links.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. A token issued for one purpose never validates for
// another, so a verification link cannot reset a password.
const (
	PurposeEmailVerify   = "email_verify"
	PurposePasswordReset = "password_reset"
)

// TokenClaims is the payload carried by a purpose token.
type TokenClaims struct {
	Purpose string `json:"purpose"`
	UserID  string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Issue signs a token binding a purpose to a user.
func (tm *TokenManager) Issue(purpose, userID string) (string, error) {
	claims := &TokenClaims{
		Purpose: purpose,
		UserID:  userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses a token and returns the user it was issued for, rejecting
// wrong-purpose and expired tokens alike.
func (tm *TokenManager) Validate(purpose, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.Purpose != purpose {
		return "", fmt.Errorf("token purpose mismatch: got %q", claims.Purpose)
	}
	return claims.UserID, nil
}
