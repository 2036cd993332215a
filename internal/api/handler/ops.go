// Package handler provides HTTP handlers for the charging station API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/chargefinder/chargefinder/internal/api/models"
	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/provider/resilience"
)

// ProviderHealthSource reports upstream client health.
type ProviderHealthSource interface {
	GetAllHealth() []*resilience.ProviderHealth
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	providers ProviderHealthSource
	flags     FlagLister
}

// NewOpsHandler creates a new OpsHandler. providers and flags may be nil.
func NewOpsHandler(version, buildTime string, providers ProviderHealthSource, flags FlagLister) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		providers: providers,
		flags:     flags,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is not ready when
// every upstream circuit is open, since no request could then succeed.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	statuses := h.providerStatuses()
	overall := aggregateStatus(statuses)

	code := http.StatusOK
	if overall == models.HealthStatusFail && allFailed(statuses) {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status: overall,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider breaker state and active flags.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.providerStatuses()
	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:      aggregateStatus(statuses),
		Time:        models.Timestamp(time.Now()),
		Providers:   statuses,
		ActiveFlags: h.activeFlags(r.Context()),
	})
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.providers == nil {
		return []models.ProviderStatus{}
	}
	health := h.providers.GetAllHealth()
	statuses := make([]models.ProviderStatus, 0, len(health))
	for _, p := range health {
		st := models.ProviderStatus{
			Provider:      p.Name,
			Status:        models.HealthStatusOK,
			CircuitState:  p.CircuitState.String(),
			Requests:      p.Counts.Requests,
			Failures:      p.Counts.ConsecutiveFailures,
			LastSuccessAt: timestampPtr(p.LastSuccessAt),
			LastFailureAt: timestampPtr(p.LastFailureAt),
		}
		switch {
		case p.IsUnhealthy():
			st.Status = models.HealthStatusFail
		case p.IsDegraded():
			st.Status = models.HealthStatusDegraded
		}
		if p.LastError != "" {
			msg := p.LastError
			st.Message = &msg
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// activeFlags lists boolean flags that are switched on.
func (h *OpsHandler) activeFlags(ctx context.Context) []string {
	if h.flags == nil {
		return nil
	}
	var active []string
	for _, f := range h.flags.List(ctx).Items {
		if v, ok := f.Value.(bool); ok && v {
			active = append(active, f.Key)
		}
	}
	return active
}

func aggregateStatus(statuses []models.ProviderStatus) models.HealthStatus {
	overall := models.HealthStatusOK
	for _, s := range statuses {
		switch s.Status {
		case models.HealthStatusFail:
			return models.HealthStatusFail
		case models.HealthStatusDegraded:
			overall = models.HealthStatusDegraded
		}
	}
	return overall
}

func allFailed(statuses []models.ProviderStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, s := range statuses {
		if s.Status != models.HealthStatusFail {
			return false
		}
	}
	return true
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
