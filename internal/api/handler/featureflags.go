package handler

import (
	"context"
	"net/http"

	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/featureflags"
)

// FlagLister lists the effective feature flags.
type FlagLister interface {
	List(ctx context.Context) featureflags.FlagList
}

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	flags FlagLister
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(flags FlagLister) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{flags: flags}
}

// ListFeatureFlags handles GET /v1/feature-flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, r, http.StatusOK, h.flags.List(r.Context()))
}
