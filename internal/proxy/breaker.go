package proxy

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds configuration for per-service circuit breakers.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed in half-open state.
	// Default: 1
	MaxRequests uint32

	// Interval is the cyclic period for clearing internal counts when closed.
	// Default: 0 (disabled)
	Interval time.Duration

	// Timeout is the period of open state before switching to half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// ReadyToTrip determines when to trip a breaker.
	// If nil, uses DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called when a breaker changes state.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip trips when at least 5 requests have been made
// and the failure rate is 50% or higher.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// serverError marks a 5xx upstream response as a breaker failure.
// The response itself is still returned to the client.
type serverError struct {
	StatusCode int
}

func (e *serverError) Error() string {
	return "upstream server error: " + http.StatusText(e.StatusCode)
}

// isSuccessful treats client cancellations as neutral rather than as upstream failures.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// BreakerSet lazily creates one circuit breaker per service name.
type BreakerSet struct {
	cfg BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

// NewBreakerSet creates an empty set.
func NewBreakerSet(cfg BreakerConfig) *BreakerSet {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = DefaultReadyToTrip
	}
	return &BreakerSet{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*http.Response]),
	}
}

// Get returns the breaker for name, creating it on first use.
func (s *BreakerSet) Get(name string) *gobreaker.CircuitBreaker[*http.Response] {
	s.mu.RLock()
	cb, ok := s.breakers[name]
	s.mu.RUnlock()
	if ok {
		return cb
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := s.breakers[name]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:         name,
		MaxRequests:  s.cfg.MaxRequests,
		Interval:     s.cfg.Interval,
		Timeout:      s.cfg.Timeout,
		ReadyToTrip:  s.cfg.ReadyToTrip,
		IsSuccessful: isSuccessful,
	}
	if s.cfg.OnStateChange != nil {
		settings.OnStateChange = s.cfg.OnStateChange
	}

	cb = gobreaker.NewCircuitBreaker[*http.Response](settings) //nolint:bodyclose // type param, not response
	s.breakers[name] = cb
	return cb
}

// Forget drops the breaker for name so a re-registered service starts closed.
func (s *BreakerSet) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.breakers, name)
}

// BreakerState is a point-in-time view of one breaker.
type BreakerState struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts
}

// States returns the state of every breaker created so far, ordered by name.
func (s *BreakerSet) States() []BreakerState {
	s.mu.RLock()
	states := make([]BreakerState, 0, len(s.breakers))
	for name, cb := range s.breakers {
		states = append(states, BreakerState{Name: name, State: cb.State(), Counts: cb.Counts()})
	}
	s.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states
}
