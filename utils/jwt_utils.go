package utils

import (
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Error codes surfaced in JSON error envelopes.
const (
	ErrorTokenAuthFail = 20001
	ErrorForbiddenIP   = 20003
)

// VerifyJWTSubject validates a bearer token against JWT_SECRET (HS256) and
// returns the subject claim. Both the HTTP middleware and the push channel
// handshake go through this single verification path. A structurally valid
// token with an empty subject is rejected.
func VerifyJWTSubject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil {
		return "", errors.Wrap(err, "invalid jwt token")
	}
	if !token.Valid {
		return "", errors.New("invalid jwt token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", errors.Wrap(err, "fail to extract subject claim")
	}
	if sub == "" {
		return "", errors.New("jwt token has no subject claim")
	}
	return sub, nil
}
