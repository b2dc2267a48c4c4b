package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshp123/emodul-golang/internal/poller"
)

// HealthHandler returns a simple OK for liveness checks.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// StateReader is the slice of the poller the status endpoint reads from.
type StateReader interface {
	States() map[string]poller.ModuleState
}

type moduleStatus struct {
	Name        string     `json:"name"`
	Type        string     `json:"type,omitempty"`
	Zones       int        `json:"zones"`
	Tiles       int        `json:"tiles"`
	FetchedAt   *time.Time `json:"fetched_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// StatusHandler reports per-module poll health as JSON. Modules that were
// never fetched show no fetched_at at all, which is distinct from a stale
// timestamp.
func StatusHandler(reader StateReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		out := make(map[string]moduleStatus)
		for udid, state := range reader.States() {
			status := moduleStatus{
				Name:      state.Module.Name,
				Type:      state.Module.Type,
				LastError: state.LastError,
			}
			if state.Snapshot != nil {
				fetchedAt := state.Snapshot.FetchedAt
				status.FetchedAt = &fetchedAt
				status.Zones = len(state.Snapshot.Zones)
				status.Tiles = len(state.Snapshot.Tiles)
			}
			if !state.LastErrorAt.IsZero() {
				errorAt := state.LastErrorAt
				status.LastErrorAt = &errorAt
			}
			out[udid] = status
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
