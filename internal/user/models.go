// Package user provides account lookup for login and the cached profile served at /v1/me.
//
// Password hashes never leave this package's Repository boundary except to the login
// path; Profile, the cached and serialized view, does not carry them.
package user

import "time"

// User is a stored account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Avatar       *string
	PhoneNumber  *string
	BirthDate    *time.Time
	CreatedAt    time.Time
}

// Profile is the public view of a user.
type Profile struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Avatar      *string    `json:"avatar,omitempty"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	BirthDate   *time.Time `json:"birth_of_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Profile returns the public view of u.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Avatar:      u.Avatar,
		PhoneNumber: u.PhoneNumber,
		BirthDate:   u.BirthDate,
		CreatedAt:   u.CreatedAt,
	}
}
