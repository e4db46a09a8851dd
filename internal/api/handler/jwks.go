package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/edgegate/edgegate/internal/api/response"
)

// JWKSHandler publishes the access token verification key so downstream
// services can verify tokens themselves.
type JWKSHandler struct {
	set jwk.Set
}

// NewJWKSHandler creates a new JWKSHandler.
func NewJWKSHandler(set jwk.Set) *JWKSHandler {
	return &JWKSHandler{set: set}
}

// JWKS handles GET /gateway/.well-known/jwks.json.
func (h *JWKSHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	if h.set == nil {
		response.NotFound(w, r, "no signing keys published")
		return
	}
	body, err := json.Marshal(h.set)
	if err != nil {
		response.InternalError(w, r, "failed to encode key set")
		return
	}

	w.Header().Set("Content-Type", "application/jwk-set+json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
