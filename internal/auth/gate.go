package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Gate errors.
var (
	// ErrUnauthorized covers a missing header, a bad scheme, and every codec failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidSession means the token verified but its session is no longer current.
	ErrInvalidSession = errors.New("invalid session")
)

// Identity is the authenticated caller derived from a verified access token.
type Identity struct {
	SubjectID int64
	SessionID string
}

// GateConfig holds configuration for the auth gate.
type GateConfig struct {
	Codec    *Codec
	Keys     *KeyPair
	Sessions SessionStore
	Logger   zerolog.Logger

	// PurgeOnMismatch deletes the subject's current session when a request presents a
	// token from a different session.
	PurgeOnMismatch bool
}

// Gate turns an Authorization header into an Identity.
type Gate struct {
	codec           *Codec
	keys            *KeyPair
	sessions        SessionStore
	logger          zerolog.Logger
	purgeOnMismatch bool
}

// NewGate creates a new auth gate.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{
		codec:           cfg.Codec,
		keys:            cfg.Keys,
		sessions:        cfg.Sessions,
		logger:          cfg.Logger,
		purgeOnMismatch: cfg.PurgeOnMismatch,
	}
}

// BearerToken extracts the token from an Authorization header value.
// The scheme match is case-insensitive.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrUnauthorized)
	}

	const bearerPrefix = "Bearer "
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrUnauthorized)
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	return token, nil
}

// Authenticate verifies the access token in header. It performs no I/O.
func (g *Gate) Authenticate(header string) (*Identity, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}

	claims, err := g.codec.Verify(token, g.keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return &Identity{SubjectID: claims.SubjectID, SessionID: claims.SessionID}, nil
}

// AuthenticateSession verifies the token and additionally requires its session to be the
// subject's current session. Store failures are returned wrapped in ErrSessionBackend.
func (g *Gate) AuthenticateSession(ctx context.Context, header string) (*Identity, error) {
	identity, err := g.Authenticate(header)
	if err != nil {
		return nil, err
	}
	if err := g.CheckSession(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// CheckSession compares identity's session with the subject's current session.
func (g *Gate) CheckSession(ctx context.Context, identity *Identity) error {
	current, err := g.sessions.CurrentSession(ctx, identity.SubjectID)
	if errors.Is(err, ErrSessionNotFound) {
		return ErrInvalidSession
	}
	if err != nil {
		return err
	}

	if current != identity.SessionID {
		g.logger.Warn().
			Int64("subject_id", identity.SubjectID).
			Msg("token presented for a session that is no longer current")

		if g.purgeOnMismatch {
			if err := g.sessions.EndSession(ctx, identity.SubjectID); err != nil {
				g.logger.Error().Err(err).Int64("subject_id", identity.SubjectID).Msg("failed to purge stale session")
			}
		}
		return ErrInvalidSession
	}
	return nil
}
