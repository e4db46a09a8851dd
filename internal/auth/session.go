package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session errors.
var (
	// ErrSessionNotFound means the subject has no live session (never started, ended, or expired).
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBackend wraps failures of the session store itself.
	ErrSessionBackend = errors.New("session store unavailable")
)

// DefaultSessionKeyPrefix is prepended to the subject id to form the session key.
const DefaultSessionKeyPrefix = "session:user_id:"

// SessionStore maps a subject to its one current session id.
type SessionStore interface {
	// StartSession records sessionID as the subject's current session, replacing any previous one.
	StartSession(ctx context.Context, subjectID int64, sessionID string, ttl time.Duration) error

	// ExtendSession resets the TTL of sessionID only while it is still the subject's
	// current session. It returns ErrSessionNotFound when the session was ended or replaced.
	ExtendSession(ctx context.Context, subjectID int64, sessionID string, ttl time.Duration) error

	// CurrentSession returns the subject's current session id or ErrSessionNotFound.
	CurrentSession(ctx context.Context, subjectID int64) (string, error)

	// EndSession removes the subject's session. Ending a missing session is not an error.
	EndSession(ctx context.Context, subjectID int64) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// extendScript compares the stored session id and extends its TTL in one step.
// ARGV[2] is the TTL in milliseconds; 0 leaves the key without expiry.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	redis.call("PERSIST", KEYS[1])
end
return 1
`)

// RedisSessionStore keeps sessions in Redis with a per-key TTL.
type RedisSessionStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(rdb redis.UniversalClient, keyPrefix string) *RedisSessionStore {
	if keyPrefix == "" {
		keyPrefix = DefaultSessionKeyPrefix
	}
	return &RedisSessionStore{rdb: rdb, prefix: keyPrefix}
}

func (s *RedisSessionStore) key(subjectID int64) string {
	return s.prefix + strconv.FormatInt(subjectID, 10)
}

// StartSession implements SessionStore.
func (s *RedisSessionStore) StartSession(ctx context.Context, subjectID int64, sessionID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.key(subjectID), sessionID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: start session: %v", ErrSessionBackend, err)
	}
	return nil
}

// ExtendSession implements SessionStore.
func (s *RedisSessionStore) ExtendSession(ctx context.Context, subjectID int64, sessionID string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, s.rdb, []string{s.key(subjectID)}, sessionID, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("%w: extend session: %v", ErrSessionBackend, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CurrentSession implements SessionStore.
func (s *RedisSessionStore) CurrentSession(ctx context.Context, subjectID int64) (string, error) {
	sid, err := s.rdb.Get(ctx, s.key(subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: read session: %v", ErrSessionBackend, err)
	}
	return sid, nil
}

// EndSession implements SessionStore.
func (s *RedisSessionStore) EndSession(ctx context.Context, subjectID int64) error {
	if err := s.rdb.Del(ctx, s.key(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: end session: %v", ErrSessionBackend, err)
	}
	return nil
}

// Ping implements SessionStore.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionBackend, err)
	}
	return nil
}

// MemorySessionStore is an in-process SessionStore for development and tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]memorySession
	clock    Clock
}

type memorySession struct {
	id        string
	expiresAt time.Time // zero means no expiry, matching Redis SET without TTL
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore(clock Clock) *MemorySessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemorySessionStore{
		sessions: make(map[int64]memorySession),
		clock:    clock,
	}
}

// StartSession implements SessionStore.
func (s *MemorySessionStore) StartSession(_ context.Context, subjectID int64, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := memorySession{id: sessionID}
	if ttl > 0 {
		sess.expiresAt = s.clock().Add(ttl)
	}
	s.sessions[subjectID] = sess
	return nil
}

// ExtendSession implements SessionStore.
func (s *MemorySessionStore) ExtendSession(_ context.Context, subjectID int64, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(subjectID)
	if !ok || sess.id != sessionID {
		return ErrSessionNotFound
	}
	sess.expiresAt = time.Time{}
	if ttl > 0 {
		sess.expiresAt = s.clock().Add(ttl)
	}
	s.sessions[subjectID] = sess
	return nil
}

// CurrentSession implements SessionStore.
func (s *MemorySessionStore) CurrentSession(_ context.Context, subjectID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(subjectID)
	if !ok {
		return "", ErrSessionNotFound
	}
	return sess.id, nil
}

// live returns the subject's unexpired session, dropping an expired one. Callers hold mu.
func (s *MemorySessionStore) live(subjectID int64) (memorySession, bool) {
	sess, ok := s.sessions[subjectID]
	if !ok {
		return memorySession{}, false
	}
	if !sess.expiresAt.IsZero() && !s.clock().Before(sess.expiresAt) {
		delete(s.sessions, subjectID)
		return memorySession{}, false
	}
	return sess, true
}

// EndSession implements SessionStore.
func (s *MemorySessionStore) EndSession(_ context.Context, subjectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, subjectID)
	return nil
}

// Ping implements SessionStore.
func (s *MemorySessionStore) Ping(context.Context) error {
	return nil
}
