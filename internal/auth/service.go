package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edgegate/edgegate/internal/user"
)

// Service errors.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("the password is not correct")
)

// AccountFinder looks up accounts for login.
type AccountFinder interface {
	FindByLogin(ctx context.Context, login string) (*user.User, error)
}

// ProfileInvalidator evicts cached profile data at logout.
type ProfileInvalidator interface {
	InvalidateProfile(ctx context.Context, id int64)
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	Codec    *Codec
	Keys     Keys
	Sessions SessionStore
	Accounts AccountFinder
	Profiles ProfileInvalidator
	Logger   zerolog.Logger

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SessionTTL defaults to RefreshTTL so a session outlives every token minted for it.
	SessionTTL time.Duration
}

// Service implements login, refresh and logout.
type Service struct {
	codec      *Codec
	keys       Keys
	sessions   SessionStore
	accounts   AccountFinder
	profiles   ProfileInvalidator
	logger     zerolog.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessionTTL time.Duration
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = refreshTTL
	}

	return &Service{
		codec:      cfg.Codec,
		keys:       cfg.Keys,
		sessions:   cfg.Sessions,
		accounts:   cfg.Accounts,
		profiles:   cfg.Profiles,
		logger:     cfg.Logger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sessionTTL: sessionTTL,
	}
}

// Login checks credentials, starts a new session (replacing any previous one) and
// returns a token pair bound to it. The login fails if the session cannot be stored.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	account, err := s.accounts.FindByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("finding account: %w", err)
	}

	ok, err := VerifyPassword(account.PasswordHash, req.Password)
	if err != nil {
		s.logger.Debug().Err(err).Int64("subject_id", account.ID).Msg("password verification failed")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	if err := s.sessions.StartSession(ctx, account.ID, sessionID, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	tokens, err := s.issue(account.ID, sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("subject_id", account.ID).Msg("login succeeded")
	return tokens, nil
}

// Refresh exchanges a refresh token for a new pair bound to the same session and
// extends the session's lifetime. The session must still be current when the store
// extends it, so a logout or newer login racing the refresh wins.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.codec.Verify(refreshToken, s.keys.Refresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	err = s.sessions.ExtendSession(ctx, claims.SubjectID, claims.SessionID, s.sessionTTL)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("extending session: %w", err)
	}

	return s.issue(claims.SubjectID, claims.SessionID)
}

// Logout ends the identity's session. A failure to delete the session is logged and
// not returned: the caller's logout still succeeds.
func (s *Service) Logout(ctx context.Context, identity *Identity) {
	if err := s.sessions.EndSession(ctx, identity.SubjectID); err != nil {
		s.logger.Error().Err(err).
			Int64("subject_id", identity.SubjectID).
			Str("session_id", identity.SessionID).
			Msg("failed to end session at logout, session remains live until TTL")
	}
	if s.profiles != nil {
		s.profiles.InvalidateProfile(ctx, identity.SubjectID)
	}

	s.logger.Info().Int64("subject_id", identity.SubjectID).Msg("logout")
}

func (s *Service) issue(subjectID int64, sessionID string) (*TokenResponse, error) {
	access, err := s.codec.Mint(subjectID, sessionID, s.accessTTL, s.keys.Access)
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	refresh, err := s.codec.Mint(subjectID, sessionID, s.refreshTTL, s.keys.Refresh)
	if err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}

	return &TokenResponse{
		Type:         "Token",
		TokenType:    "Bearer",
		AccessToken:  access,
		RefreshToken: refresh,
		ExpireIn:     int64(s.accessTTL.Seconds()),
	}, nil
}
