package handler

import (
	"context"

	"github.com/edgegate/edgegate/internal/api/middleware"
	"github.com/edgegate/edgegate/internal/auth"
)

// GetIdentity retrieves the authenticated caller from the context.
// This is a convenience wrapper around middleware.GetIdentity.
func GetIdentity(ctx context.Context) *auth.Identity {
	return middleware.GetIdentity(ctx)
}
