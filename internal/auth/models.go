// Package auth issues and verifies session-bound RS256 tokens for the gateway.
package auth

import "unicode/utf8"

// Login field limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidationError carries the field errors of a rejected request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation error"
	}
	return "validation error: " + e.Fields[0].Message
}

// LoginRequest is the body of POST /v1/login_by_email.
type LoginRequest struct {
	// Username may also be the account's email address.
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks field lengths.
func (r *LoginRequest) Validate() []FieldError {
	var errs []FieldError

	if n := utf8.RuneCountInString(r.Username); n < MinUsernameLength || n > MaxUsernameLength {
		errs = append(errs, FieldError{
			Field:   "username",
			Message: "username must be between 3 and 50 characters",
			Code:    "LENGTH",
		})
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		errs = append(errs, FieldError{
			Field:   "password",
			Message: "password must be at least 8 characters",
			Code:    "LENGTH",
		})
	}

	return errs
}

// RefreshRequest is the body of POST /v1/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	// Type is always "Token".
	Type string `json:"type"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// ExpireIn is the access token lifetime in seconds.
	ExpireIn int64 `json:"expire_in"`
}
