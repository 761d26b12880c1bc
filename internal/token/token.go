// Package token issues and verifies the HS256 bearer tokens used across the
// storefront: access tokens for API calls and single-purpose tokens for email
// verification links.
package token

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/microshop/internal/identity"
)

// DefaultAccessTTL is the access token lifetime.
const DefaultAccessTTL = 24 * time.Hour

// verifyTTL is the email-verification token lifetime.
const verifyTTL = time.Hour

// ErrInvalidToken is returned for any token that fails signature, expiry or
// purpose checks. Callers get no further detail.
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies tokens with a shared HS256 secret.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewIssuer creates an Issuer. A non-positive ttl falls back to
// DefaultAccessTTL.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &Issuer{
		secret:    secret,
		accessTTL: ttl,
		now:       time.Now,
	}
}

type accessClaims struct {
	Email string `json:"email"`
	Admin bool   `json:"adm,omitempty"`
	Typ   string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

type verifyClaims struct {
	Email string `json:"email"`
	Typ   string `json:"typ"`
	jwt.RegisteredClaims
}

// Access issues a bearer access token for the given identity.
func (i *Issuer) Access(id identity.Identity) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email: id.Email,
		Admin: id.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	})
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign access token")
	}
	return signed, nil
}

// VerifyAccess parses and validates a bearer access token, returning the
// caller identity it carries.
func (i *Issuer) VerifyAccess(raw string) (identity.Identity, error) {
	var claims accessClaims
	if err := i.parse(raw, &claims); err != nil {
		return identity.Identity{}, err
	}
	// A purpose-scoped token (email verification) is not a bearer token,
	// even though it carries the same signature.
	if claims.Typ != "" {
		return identity.Identity{}, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.Email == "" {
		return identity.Identity{}, ErrInvalidToken
	}
	return identity.Identity{
		UserID: userID,
		Email:  claims.Email,
		Admin:  claims.Admin,
	}, nil
}

// EmailVerification issues a single-purpose token for a verification link.
func (i *Issuer) EmailVerification(userID int64, email string) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, verifyClaims{
		Email: email,
		Typ:   "verify",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(verifyTTL)),
		},
	})
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign verify token")
	}
	return signed, nil
}

// VerifyEmailVerification validates a verification token and returns the
// user id and email it was issued for. Access tokens are rejected here: the
// purpose claim must match.
func (i *Issuer) VerifyEmailVerification(raw string) (int64, string, error) {
	var claims verifyClaims
	if err := i.parse(raw, &claims); err != nil {
		return 0, "", err
	}
	if claims.Typ != "verify" {
		return 0, "", ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.Email == "" {
		return 0, "", ErrInvalidToken
	}
	return userID, claims.Email, nil
}

func (i *Issuer) parse(raw string, claims jwt.Claims) error {
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !t.Valid {
		return ErrInvalidToken
	}
	return nil
}
