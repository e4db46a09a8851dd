package user

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Service provides user lookups backed by a repository and a profile cache.
type Service struct {
	repo   Repository
	cache  ProfileCache
	logger zerolog.Logger
}

// ServiceConfig holds configuration for the user service.
type ServiceConfig struct {
	Repo   Repository
	Cache  ProfileCache
	Logger zerolog.Logger
}

// NewService creates a new user service.
func NewService(cfg ServiceConfig) *Service {
	cache := cfg.Cache
	if cache == nil {
		cache = NoopProfileCache{}
	}
	return &Service{
		repo:   cfg.Repo,
		cache:  cache,
		logger: cfg.Logger,
	}
}

// FindByLogin returns the account for a username or email, including its password hash.
func (s *Service) FindByLogin(ctx context.Context, login string) (*User, error) {
	return s.repo.FindByLogin(ctx, login)
}

// GetProfile returns the user's profile, reading through the cache.
// Cache failures are logged and fall back to the repository.
func (s *Service) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn().Err(err).Int64("user_id", id).Msg("profile cache read failed")
	}

	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := u.Profile()
	if err := s.cache.Set(ctx, profile); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", id).Msg("profile cache write failed")
	}
	return profile, nil
}

// InvalidateProfile evicts the cached profile.
func (s *Service) InvalidateProfile(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", id).Msg("profile cache eviction failed")
	}
}
