package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/edgegate/edgegate/internal/api/response"
	"github.com/edgegate/edgegate/internal/user"
)

// ProfileReader loads a user's profile.
type ProfileReader interface {
	GetProfile(ctx context.Context, id int64) (*user.Profile, error)
}

// MeHandler handles the caller's account endpoints.
type MeHandler struct {
	users ProfileReader
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(users ProfileReader) *MeHandler {
	return &MeHandler{users: users}
}

// GetMe handles GET /v1/me - get the caller's profile.
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	profile, err := h.users.GetProfile(r.Context(), identity.SubjectID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.NotFound(w, r, "user not found")
			return
		}
		response.InternalError(w, r, "failed to load profile")
		return
	}

	response.Entity(w, r, "Successfully get profile.", profile)
}
