package exporter

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/emodul-golang/internal/poller"
)

// StateReader is the slice of the poller the collector reads from.
type StateReader interface {
	States() map[string]poller.ModuleState
}

// Collector exposes the poller's module state as Prometheus metrics. It
// never talks to the cloud itself: scrapes read whatever the poller holds,
// so a slow or failing API cannot stall /metrics.
type Collector struct {
	reader StateReader

	zoneTemp     *prometheus.GaugeVec
	zoneTarget   *prometheus.GaugeVec
	zoneHumidity *prometheus.GaugeVec
	zoneOn       *prometheus.GaugeVec
	zoneHeating  *prometheus.GaugeVec
	zoneBattery  *prometheus.GaugeVec
	zoneSignal   *prometheus.GaugeVec
	windowOpen   *prometheus.GaugeVec

	tileValue *prometheus.GaugeVec
	tileOn    *prometheus.GaugeVec

	lastPoll   *prometheus.GaugeVec
	pollOK     *prometheus.GaugeVec
	moduleInfo *prometheus.GaugeVec
}

func NewCollector(reader StateReader) *Collector {
	zoneLabels := []string{"module", "zone_id", "zone_name"}
	tileLabels := []string{"module", "tile_id", "kind"}
	moduleLabels := []string{"module"}
	return &Collector{
		reader: reader,
		zoneTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_temperature_celsius",
			Help: "Current zone temperature",
		}, zoneLabels),
		zoneTarget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_target_temperature_celsius",
			Help: "Target zone temperature",
		}, zoneLabels),
		zoneHumidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_humidity_percent",
			Help: "Zone relative humidity",
		}, zoneLabels),
		zoneOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_on_bool",
			Help: "Zone enabled (1=on, 0=off)",
		}, zoneLabels),
		zoneHeating: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_heating_bool",
			Help: "Zone actively heating or cooling (1=active, 0=idle)",
		}, zoneLabels),
		zoneBattery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_battery_percent",
			Help: "Zone sensor battery level",
		}, zoneLabels),
		zoneSignal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_signal_percent",
			Help: "Zone sensor signal strength",
		}, zoneLabels),
		windowOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_zone_window_open_bool",
			Help: "Any window sensor open in the zone (1=open, 0=closed)",
		}, zoneLabels),
		tileValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_tile_value",
			Help: "Primary decoded tile reading (unit depends on kind)",
		}, tileLabels),
		tileOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_tile_on_bool",
			Help: "Relay-like tile state (1=on, 0=off)",
		}, tileLabels),
		lastPoll: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_module_last_poll_timestamp_seconds",
			Help: "Last successful poll per module (epoch seconds)",
		}, moduleLabels),
		pollOK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_module_poll_success",
			Help: "Most recent poll outcome per module (1=ok, 0=error)",
		}, moduleLabels),
		moduleInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emodul_module_info",
			Help: "Module descriptor (always 1)",
		}, []string{"module", "name", "type", "version"}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, vec := range c.vectors() {
		vec.Describe(ch)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, vec := range c.vectors() {
		vec.Reset()
	}

	for udid, state := range c.reader.States() {
		moduleLabels := prometheus.Labels{"module": udid}
		c.pollOK.With(moduleLabels).Set(boolToFloat(state.LastError == ""))
		c.moduleInfo.With(prometheus.Labels{
			"module":  udid,
			"name":    state.Module.Name,
			"type":    state.Module.Type,
			"version": state.Module.Version,
		}).Set(1)

		if state.Snapshot == nil {
			continue
		}
		c.lastPoll.With(moduleLabels).Set(float64(state.Snapshot.FetchedAt.Unix()))
		c.collectSnapshot(udid, state)
	}

	for _, vec := range c.vectors() {
		vec.Collect(ch)
	}
}

func (c *Collector) collectSnapshot(udid string, state poller.ModuleState) {
	snapshot := state.Snapshot
	for _, zone := range snapshot.Zones {
		labels := prometheus.Labels{
			"module":    udid,
			"zone_id":   strconv.Itoa(zone.ID),
			"zone_name": zone.Name,
		}
		if zone.CurrentTemperature != nil {
			c.zoneTemp.With(labels).Set(*zone.CurrentTemperature)
		}
		if zone.TargetTemperature != nil {
			c.zoneTarget.With(labels).Set(*zone.TargetTemperature)
		}
		if zone.Humidity != nil {
			c.zoneHumidity.With(labels).Set(*zone.Humidity)
		}
		if zone.BatteryLevel != nil {
			c.zoneBattery.With(labels).Set(float64(*zone.BatteryLevel))
		}
		if zone.SignalStrength != nil {
			c.zoneSignal.With(labels).Set(float64(*zone.SignalStrength))
		}
		// Unknown mode is left unreported rather than guessed.
		switch zone.Mode {
		case "on":
			c.zoneOn.With(labels).Set(1)
		case "off":
			c.zoneOn.With(labels).Set(0)
		}
		switch zone.State {
		case "heating", "cooling":
			c.zoneHeating.With(labels).Set(1)
		case "idle":
			c.zoneHeating.With(labels).Set(0)
		}
		if len(zone.Windows) > 0 {
			open := false
			for _, window := range zone.Windows {
				if window.State == "open" {
					open = true
				}
			}
			c.windowOpen.With(labels).Set(boolToFloat(open))
		}
	}

	for _, tile := range snapshot.Tiles {
		labels := prometheus.Labels{
			"module":  udid,
			"tile_id": strconv.Itoa(tile.ID),
			"kind":    string(tile.Kind),
		}
		if tile.Value != nil {
			c.tileValue.With(labels).Set(*tile.Value)
		}
		if tile.On != nil {
			c.tileOn.With(labels).Set(boolToFloat(*tile.On))
		}
	}
}

func (c *Collector) vectors() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		c.zoneTemp, c.zoneTarget, c.zoneHumidity, c.zoneOn, c.zoneHeating,
		c.zoneBattery, c.zoneSignal, c.windowOpen,
		c.tileValue, c.tileOn,
		c.lastPoll, c.pollOK, c.moduleInfo,
	}
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}

// Registry builds a dedicated registry holding the collector plus the
// standard process and Go runtime collectors.
func Registry(collector *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "emodul_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))
	return registry
}
