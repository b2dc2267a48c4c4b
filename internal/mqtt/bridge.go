package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/joshp123/emodul-golang/emodul"
)

// Publisher is the transport slice the bridge needs; satisfied by *Client
// and by fakes in tests.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload string) error
	Subscribe(topic string, callback func(message string)) error
}

// Controller is the write side of the cloud client.
type Controller interface {
	SetConstTemp(ctx context.Context, udid string, zone emodul.Zone, targetC float64) error
	SetZone(ctx context.Context, udid string, zoneID int, on bool) error
}

const commandTimeout = 30 * time.Second

// BridgeConfig wires a Bridge.
type BridgeConfig struct {
	Publisher       Publisher
	Controller      Controller
	TopicPrefix     string
	DiscoveryPrefix string
}

// Bridge mirrors module snapshots to MQTT and exposes each zone as a Home
// Assistant climate entity via MQTT discovery. State topics are retained so
// a restarting Home Assistant picks up the last published values.
type Bridge struct {
	BridgeConfig

	mu        sync.Mutex
	announced map[string]bool
	zones     map[string]emodul.Zone // key: moduleKey/zoneID, latest seen
}

func NewBridge(cfg BridgeConfig) *Bridge {
	return &Bridge{
		BridgeConfig: cfg,
		announced:    make(map[string]bool),
		zones:        make(map[string]emodul.Zone),
	}
}

// PublishSnapshot pushes one module snapshot to the broker. First sight of
// a zone also publishes its discovery config and wires the command topics.
func (b *Bridge) PublishSnapshot(module emodul.Module, snapshot emodul.Snapshot) {
	name := moduleKey(module)
	for _, zone := range snapshot.Zones {
		b.rememberZone(name, zone)
		b.announceZone(name, module, zone)
		b.publishZoneState(name, zone)
	}
	for _, tile := range snapshot.Tiles {
		b.publishTileState(name, tile)
	}
}

func (b *Bridge) rememberZone(name string, zone emodul.Zone) {
	b.mu.Lock()
	b.zones[zoneKey(name, zone.ID)] = zone
	b.mu.Unlock()
}

func (b *Bridge) latestZone(name string, zoneID int) (emodul.Zone, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	zone, ok := b.zones[zoneKey(name, zoneID)]
	return zone, ok
}

func (b *Bridge) announceZone(name string, module emodul.Module, zone emodul.Zone) {
	key := zoneKey(name, zone.ID)
	b.mu.Lock()
	seen := b.announced[key]
	b.announced[key] = true
	b.mu.Unlock()
	if seen {
		return
	}

	payload, err := json.Marshal(b.climateConfig(name, zone))
	if err != nil {
		log.Error().Err(err).Str("zone", key).Msg("marshal discovery config")
		return
	}
	if err := b.Publisher.Publish(b.discoveryTopic(name, zone.ID), 0, true, string(payload)); err != nil {
		log.Warn().Err(err).Str("zone", key).Msg("publish discovery config")
	}

	b.subscribeCommands(name, module, zone.ID)
}

func (b *Bridge) subscribeCommands(name string, module emodul.Module, zoneID int) {
	tempSet := b.zoneTopic(name, zoneID, "targetTemp") + "/set"
	err := b.Publisher.Subscribe(tempSet, func(message string) {
		target, err := strconv.ParseFloat(strings.TrimSpace(message), 64)
		if err != nil {
			log.Warn().Str("topic", tempSet).Str("payload", message).Msg("bad target temperature")
			return
		}
		zone, ok := b.latestZone(name, zoneID)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := b.Controller.SetConstTemp(ctx, module.UDID, zone, target); err != nil {
			log.Error().Err(err).Int("zone", zoneID).Float64("target", target).Msg("set temperature failed")
			return
		}
		b.Publisher.Publish(b.zoneTopic(name, zoneID, "targetTemp"), 0, true, formatTemp(target))
	})
	if err != nil {
		log.Warn().Err(err).Str("topic", tempSet).Msg("subscribe failed")
	}

	modeSet := b.zoneTopic(name, zoneID, "mode") + "/set"
	err = b.Publisher.Subscribe(modeSet, func(message string) {
		on := strings.TrimSpace(message) != "off"
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := b.Controller.SetZone(ctx, module.UDID, zoneID, on); err != nil {
			log.Error().Err(err).Int("zone", zoneID).Bool("on", on).Msg("set zone failed")
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("topic", modeSet).Msg("subscribe failed")
	}
}

func (b *Bridge) publishZoneState(name string, zone emodul.Zone) {
	if zone.CurrentTemperature != nil {
		b.Publisher.Publish(b.zoneTopic(name, zone.ID, "currentTemp"), 0, true, formatTemp(*zone.CurrentTemperature))
	}
	if zone.TargetTemperature != nil {
		b.Publisher.Publish(b.zoneTopic(name, zone.ID, "targetTemp"), 0, true, formatTemp(*zone.TargetTemperature))
	}
	if zone.Humidity != nil {
		b.Publisher.Publish(b.zoneTopic(name, zone.ID, "humidity"), 0, true, formatTemp(*zone.Humidity))
	}
	b.Publisher.Publish(b.zoneTopic(name, zone.ID, "mode"), 0, true, hvacMode(zone))
	b.Publisher.Publish(b.zoneTopic(name, zone.ID, "action"), 0, true, hvacAction(zone))
}

func (b *Bridge) publishTileState(name string, tile emodul.Tile) {
	if tile.Value != nil {
		b.Publisher.Publish(b.tileTopic(name, tile.ID, "value"), 0, true, formatTemp(*tile.Value))
	}
	if tile.On != nil {
		b.Publisher.Publish(b.tileTopic(name, tile.ID, "on"), 0, true, fmt.Sprintf("%t", *tile.On))
	}
}

// climateConfig builds the Home Assistant MQTT discovery payload for a zone.
func (b *Bridge) climateConfig(name string, zone emodul.Zone) map[string]any {
	uniqueID := fmt.Sprintf("%s_zone%d", name, zone.ID)
	displayName := zone.Name
	if displayName == "" {
		displayName = uniqueID
	}
	return map[string]any{
		"name":                      displayName,
		"unique_id":                 uniqueID,
		"current_temperature_topic": b.zoneTopic(name, zone.ID, "currentTemp"),
		"temperature_state_topic":   b.zoneTopic(name, zone.ID, "targetTemp"),
		"temperature_command_topic": b.zoneTopic(name, zone.ID, "targetTemp") + "/set",
		"mode_state_topic":          b.zoneTopic(name, zone.ID, "mode"),
		"mode_command_topic":        b.zoneTopic(name, zone.ID, "mode") + "/set",
		"action_topic":              b.zoneTopic(name, zone.ID, "action"),
		"modes":                     []string{"heat", "off"},
		"temperature_unit":          "C",
		"temp_step":                 0.5,
		"precision":                 0.1,
		"min_temp":                  5,
		"max_temp":                  35,
	}
}

// <discovery_prefix>/climate/<module>/zone<N>/config
func (b *Bridge) discoveryTopic(name string, zoneID int) string {
	return fmt.Sprintf("%s/climate/%s/zone%d/config", b.DiscoveryPrefix, name, zoneID)
}

func (b *Bridge) zoneTopic(name string, zoneID int, subtopic string) string {
	return fmt.Sprintf("%s/%s/zone%d/%s", b.TopicPrefix, name, zoneID, subtopic)
}

func (b *Bridge) tileTopic(name string, tileID int, subtopic string) string {
	return fmt.Sprintf("%s/%s/tile%d/%s", b.TopicPrefix, name, tileID, subtopic)
}

func hvacMode(zone emodul.Zone) string {
	switch zone.Mode {
	case emodul.ZoneModeOn:
		return "heat"
	case emodul.ZoneModeOff:
		return "off"
	default:
		return "unknown"
	}
}

func hvacAction(zone emodul.Zone) string {
	switch zone.State {
	case emodul.ZoneStateHeating:
		return "heating"
	case emodul.ZoneStateCooling:
		return "cooling"
	case emodul.ZoneStateIdle:
		return "idle"
	default:
		return "off"
	}
}

func formatTemp(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func zoneKey(name string, zoneID int) string {
	return fmt.Sprintf("%s/%d", name, zoneID)
}

// moduleKey yields the topic segment for a module: its name lowercased with
// whitespace collapsed to underscores, falling back to the udid.
func moduleKey(module emodul.Module) string {
	name := strings.ToLower(strings.TrimSpace(module.Name))
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		return module.UDID
	}
	return name
}
