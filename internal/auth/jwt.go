package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token policy
//
// The gateway issues two stateless RS256 tokens per login:
//
//   - access tokens (default 1 hour) authenticate API and proxied requests
//   - refresh tokens (default 24 hours) are exchanged at /v1/refresh for a new pair
//
// Access and refresh tokens are signed with different key pairs, so a token of one
// kind never verifies under the other. Both carry the session id of the login that
// minted them; session-bound routes compare it against the session cache, which is
// how logout revokes tokens before they expire.

// Default lifetimes.
const (
	DefaultAccessTokenTTL  = 1 * time.Hour
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// Predefined codec errors. Callers outside this package collapse all of them to 401.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
)

// Clock returns the current time. Injected so expiry can be tested deterministically.
type Clock func() time.Time

// KeyPair is an RSA signing key and its verification key.
// A KeyPair with only Public set can verify but not mint.
type KeyPair struct {
	// ID is published as the JWK "kid". Optional.
	ID      string
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Claims is the identity carried by a token.
type Claims struct {
	jwt.RegisteredClaims

	// SubjectID identifies the authenticated principal.
	SubjectID int64 `json:"user_id"`

	// SessionID is the session this token was issued under.
	SessionID string `json:"sid"`
}

// IssuedAtTime returns iat as a time.Time (zero when absent).
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns exp as a time.Time (zero when absent).
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// CodecConfig holds configuration for the token codec.
type CodecConfig struct {
	// Issuer is written into the iss claim when non-empty. It is not enforced on verify.
	Issuer string

	// Clock defaults to time.Now.
	Clock Clock
}

// Codec mints and verifies signed identity tokens.
type Codec struct {
	issuer string
	clock  Clock
}

// NewCodec creates a new token codec.
func NewCodec(cfg CodecConfig) *Codec {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Codec{
		issuer: cfg.Issuer,
		clock:  clock,
	}
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.clock()
}

// Mint signs a token for the subject and session that expires ttl from now.
// A zero ttl produces a token that is already expired.
func (c *Codec) Mint(subjectID int64, sessionID string, ttl time.Duration, keys *KeyPair) (string, error) {
	if keys == nil || keys.Private == nil {
		return "", errors.New("minting token: no private key")
	}

	now := c.clock()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SubjectID: subjectID,
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if keys.ID != "" {
		token.Header["kid"] = keys.ID
	}

	signed, err := token.SignedString(keys.Private)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature against keys.Public and its expiry against the
// codec clock. Expiry is strict: a token is valid only while now < exp.
func (c *Codec) Verify(tokenString string, keys *KeyPair) (*Claims, error) {
	if keys == nil || keys.Public == nil {
		return nil, errors.New("verifying token: no public key")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return keys.Public, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrSignatureInvalid
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformed)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	default:
		return ErrMalformed
	}
}
