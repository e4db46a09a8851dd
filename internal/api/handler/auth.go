package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edgegate/edgegate/internal/api/models"
	"github.com/edgegate/edgegate/internal/api/response"
	"github.com/edgegate/edgegate/internal/auth"
)

// AuthHandler handles login, refresh and logout.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles POST /v1/login_by_email - exchange credentials for a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	tokenResp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		var validationErr *auth.ValidationError
		switch {
		case errors.As(err, &validationErr):
			response.BadRequest(w, r, "validation error", fieldErrors(validationErr.Fields))
		case errors.Is(err, auth.ErrAccountNotFound):
			response.NotFound(w, r, "account not found")
		case errors.Is(err, auth.ErrInvalidCredentials):
			response.BadRequest(w, r, "the password is not correct", nil)
		case errors.Is(err, auth.ErrSessionBackend):
			response.ServiceUnavailable(w, r, "unable to start a session at this time")
		default:
			response.InternalError(w, r, "login failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// Refresh handles POST /v1/refresh - exchange a refresh token for a new pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if req.RefreshToken == "" {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "refresh_token", Message: "refresh_token is required", Code: "REQUIRED"},
		})
		return
	}

	tokenResp, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidSession):
			response.Unauthorized(w, r, "invalid refresh token")
		case errors.Is(err, auth.ErrSessionBackend):
			response.ServiceUnavailable(w, r, "session store unavailable")
		default:
			response.InternalError(w, r, "token refresh failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// Logout handles POST /v1/logout - end the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	h.authService.Logout(r.Context(), identity)
	response.Entity(w, r, "Successfully logged out.", true)
}

func fieldErrors(errs []auth.FieldError) []models.FieldError {
	out := make([]models.FieldError, len(errs))
	for i, e := range errs {
		out[i] = models.FieldError{
			Field:   e.Field,
			Message: e.Message,
			Code:    e.Code,
		}
	}
	return out
}
