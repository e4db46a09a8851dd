package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/edgegate/internal/auth"
	"github.com/edgegate/edgegate/internal/user"
)

type recordingInvalidator struct {
	ids []int64
}

func (r *recordingInvalidator) InvalidateProfile(_ context.Context, id int64) {
	r.ids = append(r.ids, id)
}

// racingSessionStore runs race just before the store extends a session, the
// interleaving a concurrent logout or login produces during a refresh.
type racingSessionStore struct {
	auth.SessionStore
	race func()
}

func (s *racingSessionStore) ExtendSession(ctx context.Context, subjectID int64, sessionID string, ttl time.Duration) error {
	if s.race != nil {
		s.race()
	}
	return s.SessionStore.ExtendSession(ctx, subjectID, sessionID, ttl)
}

type serviceFixture struct {
	svc      *auth.Service
	gate     *auth.Gate
	codec    *auth.Codec
	keys     auth.Keys
	sessions auth.SessionStore
	profiles *recordingInvalidator
}

func newServiceFixture(t *testing.T, sessions auth.SessionStore) *serviceFixture {
	t.Helper()
	keys := loadTestKeys(t)
	codec := auth.NewCodec(auth.CodecConfig{})

	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	repo := user.NewInMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), &user.User{
		ID:           42,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
	}))

	profiles := &recordingInvalidator{}
	svc := auth.NewService(auth.ServiceConfig{
		Codec:      codec,
		Keys:       keys,
		Sessions:   sessions,
		Accounts:   repo,
		Profiles:   profiles,
		Logger:     zerolog.Nop(),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	gate := auth.NewGate(auth.GateConfig{Codec: codec, Keys: keys.Access, Sessions: sessions, Logger: zerolog.Nop()})

	return &serviceFixture{svc: svc, gate: gate, codec: codec, keys: keys, sessions: sessions, profiles: profiles}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, auth.NewMemorySessionStore(nil))

	resp, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Token", resp.Type)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpireIn)

	access, err := f.codec.Verify(resp.AccessToken, f.keys.Access)
	require.NoError(t, err)
	refresh, err := f.codec.Verify(resp.RefreshToken, f.keys.Refresh)
	require.NoError(t, err)

	assert.Equal(t, int64(42), access.SubjectID)
	assert.Equal(t, access.SessionID, refresh.SessionID)

	sid, err := f.sessions.CurrentSession(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, access.SessionID, sid)
}

func TestService_LoginByEmail(t *testing.T) {
	f := newServiceFixture(t, auth.NewMemorySessionStore(nil))

	_, err := f.svc.Login(context.Background(), &auth.LoginRequest{Username: "alice@example.com", Password: "correct-horse"})
	assert.NoError(t, err)
}

func TestService_LoginErrors(t *testing.T) {
	f := newServiceFixture(t, auth.NewMemorySessionStore(nil))
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "al", Password: "short"})
		var verr *auth.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 2)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "bob", Password: "correct-horse"})
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "alice", Password: "wrong-horse"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_LoginFailsWhenSessionCannotBeStored(t *testing.T) {
	f := newServiceFixture(t, failingSessionStore{})

	resp, err := f.svc.Login(context.Background(), &auth.LoginRequest{Username: "alice", Password: "correct-horse"})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, auth.ErrSessionBackend)
}

func TestService_SecondLoginRevokesFirst(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, auth.NewMemorySessionStore(nil))
	req := &auth.LoginRequest{Username: "alice", Password: "correct-horse"}

	first, err := f.svc.Login(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, req)
	require.NoError(t, err)

	_, err = f.gate.AuthenticateSession(ctx, "Bearer "+first.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
	_, err = f.gate.AuthenticateSession(ctx, "Bearer "+second.AccessToken)
	assert.NoError(t, err)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, auth.NewMemorySessionStore(nil))

	resp, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	identity, err := f.gate.AuthenticateSession(ctx, "Bearer "+resp.AccessToken)
	require.NoError(t, err)

	f.svc.Logout(ctx, identity)

	_, err = f.gate.AuthenticateSession(ctx, "Bearer "+resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
	assert.Equal(t, []int64{42}, f.profiles.ids)
}

func TestService_LogoutSurvivesStoreFailure(t *testing.T) {
	f := newServiceFixture(t, failingSessionStore{})

	assert.NotPanics(t, func() {
		f.svc.Logout(context.Background(), &auth.Identity{SubjectID: 42, SessionID: "s"})
	})
	assert.Equal(t, []int64{42}, f.profiles.ids)
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, auth.NewMemorySessionStore(nil))

	login, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	claims, err := f.codec.Verify(refreshed.AccessToken, f.keys.Access)
	require.NoError(t, err)
	original, err := f.codec.Verify(login.AccessToken, f.keys.Access)
	require.NoError(t, err)
	assert.Equal(t, original.SessionID, claims.SessionID)

	t.Run("access token is rejected", func(t *testing.T) {
		_, err := f.svc.Refresh(ctx, login.AccessToken)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("ended session is rejected", func(t *testing.T) {
		f.svc.Logout(ctx, &auth.Identity{SubjectID: 42, SessionID: claims.SessionID})
		_, err := f.svc.Refresh(ctx, login.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrInvalidSession)
	})
}

func TestService_RefreshDoesNotReviveEndedSession(t *testing.T) {
	ctx := context.Background()
	store := &racingSessionStore{SessionStore: auth.NewMemorySessionStore(nil)}
	f := newServiceFixture(t, store)

	login, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	store.race = func() {
		require.NoError(t, store.SessionStore.EndSession(ctx, 42))
	}

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)

	_, err = store.CurrentSession(ctx, 42)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = f.gate.AuthenticateSession(ctx, "Bearer "+login.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestService_RefreshDoesNotOverwriteNewerLogin(t *testing.T) {
	ctx := context.Background()
	store := &racingSessionStore{SessionStore: auth.NewMemorySessionStore(nil)}
	f := newServiceFixture(t, store)
	req := &auth.LoginRequest{Username: "alice", Password: "correct-horse"}

	first, err := f.svc.Login(ctx, req)
	require.NoError(t, err)

	var second *auth.TokenResponse
	store.race = func() {
		store.race = nil
		second, err = f.svc.Login(ctx, req)
		require.NoError(t, err)
	}

	_, refreshErr := f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, refreshErr, auth.ErrInvalidSession)

	_, err = f.gate.AuthenticateSession(ctx, "Bearer "+second.AccessToken)
	assert.NoError(t, err)
	_, err = f.gate.AuthenticateSession(ctx, "Bearer "+first.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestService_RefreshSessionStoreOutage(t *testing.T) {
	ctx := context.Background()
	store := &racingSessionStore{SessionStore: auth.NewMemorySessionStore(nil)}
	f := newServiceFixture(t, store)

	login, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	store.SessionStore = failingSessionStore{}
	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrSessionBackend)
	assert.NotErrorIs(t, err, auth.ErrInvalidSession)
}
