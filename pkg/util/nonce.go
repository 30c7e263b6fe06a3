package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidNonce = errors.New("invalid capture nonce")

const nonceAudience = "checkout-capture"

type nonceClaims struct {
	SessionID string `json:"sid"`
	UserID    uint   `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// IssueNonce signs a short-lived token that authorises checkout captures for
// one session and user pair.
func IssueNonce(sessionID string, userID uint, secret string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required for a capture nonce")
	}
	now := time.Now()
	claims := nonceClaims{
		SessionID: sessionID,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{nonceAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateNonce checks signature, expiry and that the nonce was issued for
// the same session and user making the capture.
func ValidateNonce(nonce, sessionID string, userID uint, secret string) error {
	if nonce == "" {
		return ErrInvalidNonce
	}

	claims := &nonceClaims{}
	_, err := jwt.ParseWithClaims(nonce, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(nonceAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	if claims.SessionID != sessionID || claims.UserID != userID {
		return fmt.Errorf("%w: issued for another session", ErrInvalidNonce)
	}
	return nil
}
