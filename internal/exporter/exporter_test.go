package exporter

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshp123/emodul-golang/emodul"
	"github.com/joshp123/emodul-golang/internal/poller"
)

type staticReader map[string]poller.ModuleState

func (s staticReader) States() map[string]poller.ModuleState { return s }

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestCollect(t *testing.T) {
	snapshot := &emodul.Snapshot{
		Zones: []emodul.Zone{
			{
				ID:                 101,
				Name:               "Salon",
				Mode:               emodul.ZoneModeOn,
				State:              emodul.ZoneStateHeating,
				CurrentTemperature: floatPtr(21.5),
				TargetTemperature:  floatPtr(22.0),
				Humidity:           floatPtr(40),
				BatteryLevel:       intPtr(70),
				Windows: []emodul.WindowSensor{
					{State: emodul.WindowOpen},
				},
			},
			{
				ID:   109,
				Name: "Sypialnia",
				Mode: emodul.ZoneModeUnknown,
			},
		},
		Tiles: []emodul.Tile{
			{ID: 4063, Kind: emodul.TileTemperature, Value: floatPtr(8.6)},
			{ID: 4078, Kind: emodul.TileRelay, On: boolPtr(true)},
		},
		FetchedAt: time.Unix(1700000000, 0),
	}

	reader := staticReader{
		"udid-1": {
			Module:   emodul.Module{Name: "L-8", UDID: "udid-1", Type: "regular_controller", Version: "v2"},
			Snapshot: snapshot,
		},
		"udid-2": {
			Module:    emodul.Module{Name: "Broken", UDID: "udid-2"},
			LastError: "cloud down",
		},
	}

	collector := NewCollector(reader)

	expected := strings.NewReader(`
# HELP emodul_zone_temperature_celsius Current zone temperature
# TYPE emodul_zone_temperature_celsius gauge
emodul_zone_temperature_celsius{module="udid-1",zone_id="101",zone_name="Salon"} 21.5
# HELP emodul_zone_on_bool Zone enabled (1=on, 0=off)
# TYPE emodul_zone_on_bool gauge
emodul_zone_on_bool{module="udid-1",zone_id="101",zone_name="Salon"} 1
# HELP emodul_zone_window_open_bool Any window sensor open in the zone (1=open, 0=closed)
# TYPE emodul_zone_window_open_bool gauge
emodul_zone_window_open_bool{module="udid-1",zone_id="101",zone_name="Salon"} 1
# HELP emodul_module_poll_success Most recent poll outcome per module (1=ok, 0=error)
# TYPE emodul_module_poll_success gauge
emodul_module_poll_success{module="udid-1"} 1
emodul_module_poll_success{module="udid-2"} 0
`)
	err := testutil.CollectAndCompare(collector, expected,
		"emodul_zone_temperature_celsius",
		"emodul_zone_on_bool",
		"emodul_zone_window_open_bool",
		"emodul_module_poll_success",
	)
	require.NoError(t, err)
}

func TestCollectSkipsOptionalReadings(t *testing.T) {
	reader := staticReader{
		"udid-1": {
			Module: emodul.Module{UDID: "udid-1"},
			Snapshot: &emodul.Snapshot{
				Zones:     []emodul.Zone{{ID: 1, Name: "Bare", Mode: emodul.ZoneModeUnknown}},
				FetchedAt: time.Now(),
			},
		},
	}

	collector := NewCollector(reader)
	assert.Zero(t, testutil.CollectAndCount(collector, "emodul_zone_temperature_celsius"))
	assert.Zero(t, testutil.CollectAndCount(collector, "emodul_zone_on_bool"))
	assert.Zero(t, testutil.CollectAndCount(collector, "emodul_zone_humidity_percent"))
}

func TestRegistry(t *testing.T) {
	registry := Registry(NewCollector(staticReader{}))
	count, err := testutil.GatherAndCount(registry, "emodul_build_info")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
