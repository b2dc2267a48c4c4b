package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshp123/emodul-golang/emodul"
	"github.com/joshp123/emodul-golang/internal/poller"
)

type staticReader map[string]poller.ModuleState

func (s staticReader) States() map[string]poller.ModuleState { return s }

func TestHealthHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthHandler(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", recorder.Body.String())
}

func TestStatusHandler(t *testing.T) {
	fetchedAt := time.Unix(1700000000, 0)
	reader := staticReader{
		"udid-1": {
			Module: emodul.Module{Name: "L-8", Type: "regular_controller"},
			Snapshot: &emodul.Snapshot{
				Zones:     []emodul.Zone{{ID: 101}},
				Tiles:     []emodul.Tile{{ID: 4063}, {ID: 4078}},
				FetchedAt: fetchedAt,
			},
		},
		"udid-2": {
			Module:      emodul.Module{Name: "Broken"},
			LastError:   "cloud down",
			LastErrorAt: fetchedAt,
		},
	}

	recorder := httptest.NewRecorder()
	StatusHandler(reader).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var out map[string]struct {
		Name      string     `json:"name"`
		Zones     int        `json:"zones"`
		Tiles     int        `json:"tiles"`
		FetchedAt *time.Time `json:"fetched_at"`
		LastError string     `json:"last_error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))

	healthy := out["udid-1"]
	assert.Equal(t, "L-8", healthy.Name)
	assert.Equal(t, 1, healthy.Zones)
	assert.Equal(t, 2, healthy.Tiles)
	require.NotNil(t, healthy.FetchedAt)
	assert.True(t, healthy.FetchedAt.Equal(fetchedAt))

	broken := out["udid-2"]
	assert.Equal(t, "cloud down", broken.LastError)
	assert.Nil(t, broken.FetchedAt, "never-fetched module reports no fetched_at")
}
