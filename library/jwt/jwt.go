// Package jwt signs and verifies the admin tokens guarding operational endpoints.
package jwt

import (
	"time"

	"github.com/Laisky/errors/v2"
	jwtLib "github.com/golang-jwt/jwt/v5"
)

const adminSubject = "admin"

// AdminClaims is the payload of an admin token.
type AdminClaims struct {
	jwtLib.RegisteredClaims
}

// Verifier signs and checks HS256 admin tokens with a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier returns a Verifier for secret. An empty secret is rejected.
func NewVerifier(secret []byte, now func() time.Time) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if now == nil {
		now = time.Now
	}

	return &Verifier{secret: secret, now: now}, nil
}

// Sign issues an admin token valid for ttl.
func (v *Verifier) Sign(ttl time.Duration) (string, error) {
	now := v.now()
	claims := AdminClaims{
		RegisteredClaims: jwtLib.RegisteredClaims{
			Subject:   adminSubject,
			IssuedAt:  jwtLib.NewNumericDate(now),
			ExpiresAt: jwtLib.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwtLib.NewWithClaims(jwtLib.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign admin token")
	}
	return token, nil
}

// Verify parses token and checks its signature, expiry and subject.
func (v *Verifier) Verify(token string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwtLib.ParseWithClaims(token, claims,
		func(*jwtLib.Token) (any, error) { return v.secret, nil },
		jwtLib.WithValidMethods([]string{jwtLib.SigningMethodHS256.Alg()}),
		jwtLib.WithTimeFunc(v.now),
		jwtLib.WithExpirationRequired(),
		jwtLib.WithSubject(adminSubject),
	)
	if err != nil {
		return nil, errors.Wrap(err, "verify admin token")
	}

	return claims, nil
}
