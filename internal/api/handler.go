package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/pepscore/internal/scoring"
)

// Pinger is any dependency with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for the operational handlers.
type Handler struct {
	components map[string]Pinger
	registry   *scoring.Registry
	version    string
	ready      atomic.Bool
}

// NewHandler creates a handler. components are pinged by /health, keyed by
// the name reported in the response.
func NewHandler(version string, registry *scoring.Registry, components map[string]Pinger) *Handler {
	return &Handler{
		components: components,
		registry:   registry,
		version:    version,
	}
}

// SetReady marks the process as ready (or not) to do work.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// Health pings every component. A failing component degrades the status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Version: h.version}
	if len(h.components) > 0 {
		resp.Components = make(map[string]string, len(h.components))
	}

	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.components[name].Ping(ctx); err != nil {
			slog.Warn("health check failed", "component", name, "error", err)
			resp.Components[name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Components[name] = "up"
	}

	writeJSON(w, http.StatusOK, resp)
}

// Ready returns 200 once SetReady(true) has been called, 503 before.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// RuleInfo describes one active rule.
type RuleInfo struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// ListRules returns the active rule set in registry order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"rules": []RuleInfo{}, "count": 0})
		return
	}

	rules := make([]RuleInfo, 0, h.registry.Len())
	for _, rule := range h.registry.All() {
		rules = append(rules, RuleInfo{
			ID:       string(rule.ID()),
			Category: rule.Category(),
			Weight:   rule.Weight(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
