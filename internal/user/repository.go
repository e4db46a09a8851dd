package user

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Repository defines the interface for user data persistence.
type Repository interface {
	// Get retrieves a user by ID.
	Get(ctx context.Context, id int64) (*User, error)

	// FindByLogin retrieves a user whose username or email equals login.
	FindByLogin(ctx context.Context, login string) (*User, error)

	// Create stores a new user and assigns its ID.
	Create(ctx context.Context, user *User) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used in development when no database is configured, and in tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:  make(map[int64]*User),
		nextID: 1,
	}
}

// Get retrieves a user by ID.
func (r *InMemoryRepository) Get(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(user), nil
}

// FindByLogin retrieves a user by username or email.
func (r *InMemoryRepository) FindByLogin(_ context.Context, login string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

// Create stores a new user. A zero ID is assigned the next free ID.
func (r *InMemoryRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || (user.Email != "" && strings.EqualFold(u.Email, user.Email)) {
			return ErrUserExists
		}
	}

	if user.ID == 0 {
		user.ID = r.nextID
	}
	if _, ok := r.users[user.ID]; ok {
		return ErrUserExists
	}
	if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}

	r.users[user.ID] = copyUser(user)
	return nil
}

func copyUser(u *User) *User {
	c := *u
	if u.Avatar != nil {
		v := *u.Avatar
		c.Avatar = &v
	}
	if u.PhoneNumber != nil {
		v := *u.PhoneNumber
		c.PhoneNumber = &v
	}
	if u.BirthDate != nil {
		v := *u.BirthDate
		c.BirthDate = &v
	}
	return &c
}
