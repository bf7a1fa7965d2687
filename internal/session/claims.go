package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim of an access token without verifying its signature.
// Opaque or malformed tokens yield the zero time.
func ExpiresAt(token string) time.Time {
	if token == "" {
		return time.Time{}
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(token, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Subject reads the sub claim of an access token without verifying its signature
func Subject(token string) string {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(token, jwtlib.MapClaims{})
	if err != nil {
		return ""
	}
	sub, _ := parsed.Claims.GetSubject()
	return sub
}
