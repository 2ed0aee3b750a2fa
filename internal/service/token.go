package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

// sessionClaims is the payload of the signed session cookie. The cookie only
// proves possession; the sessions table stays authoritative, so revoking a
// row kills the cookie immediately.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Token     string `json:"tkn"` // opaque secret, fingerprinted in the session row
}

// mintSessionToken wraps the session id and opaque secret in an HS256 JWT.
func mintSessionToken(secret []byte, sessionID, opaque string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		SessionID: sessionID,
		Token:     opaque,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseSessionToken verifies the signature and expiry and returns the session
// id and opaque secret.
func parseSessionToken(secret []byte, raw string) (sessionID, opaque string, err error) {
	var claims sessionClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSessionToken
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", ErrInvalidSessionToken
	}
	if claims.SessionID == "" || claims.Token == "" {
		return "", "", ErrInvalidSessionToken
	}
	return claims.SessionID, claims.Token, nil
}
