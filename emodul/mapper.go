package emodul

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The cloud API reports temperatures as integer tenths of a degree.
const temperatureScale = 10

// MapSnapshot converts raw zone elements and raw tiles into a Snapshot.
// It is a pure function: no network, no state, fully exercisable from JSON
// fixtures. Unknown enum values and tile types are surfaced generically;
// only structurally malformed elements produce a MappingError.
func MapSnapshot(rawZones, rawTiles []json.RawMessage) (Snapshot, error) {
	var snapshot Snapshot

	for _, raw := range rawZones {
		zone, ok, err := mapZone(raw)
		if err != nil {
			return Snapshot{}, err
		}
		if ok {
			snapshot.Zones = append(snapshot.Zones, zone)
		}
	}

	for _, raw := range rawTiles {
		tile, ok, err := mapTile(raw)
		if err != nil {
			return Snapshot{}, err
		}
		if ok {
			snapshot.Tiles = append(snapshot.Tiles, tile)
		}
	}

	return snapshot, nil
}

type rawZoneElement struct {
	Zone *struct {
		ID                 int      `json:"id"`
		ZoneState          string   `json:"zoneState"`
		SetTemperature     *float64 `json:"setTemperature"`
		CurrentTemperature *float64 `json:"currentTemperature"`
		Humidity           *float64 `json:"humidity"`
		BatteryLevel       *float64 `json:"batteryLevel"`
		SignalStrength     *float64 `json:"signalStrength"`
		Visibility         *bool    `json:"visibility"`
		Flags              *struct {
			RelayState json.RawMessage `json:"relayState"`
			Algorithm  string          `json:"algorithm"`
		} `json:"flags"`
	} `json:"zone"`
	Description *struct {
		Name string `json:"name"`
	} `json:"description"`
	Mode *struct {
		ID int `json:"id"`
	} `json:"mode"`
	WindowsSensors []struct {
		State          string   `json:"windowState"`
		BatteryLevel   *float64 `json:"batteryLevel"`
		SignalStrength *float64 `json:"signalStrength"`
	} `json:"windowsSensors"`
}

// mapZone decodes one zone element. Elements without a zone record or a
// visibility field, and unregistered zones, are skipped (ok=false): the
// controller reports placeholder slots for hardware that is not there.
func mapZone(raw json.RawMessage) (Zone, bool, error) {
	var elem rawZoneElement
	if err := json.Unmarshal(raw, &elem); err != nil {
		return Zone{}, false, &MappingError{What: "zone element", Err: err}
	}
	if elem.Zone == nil || elem.Zone.Visibility == nil {
		return Zone{}, false, nil
	}
	if elem.Zone.ZoneState == "zoneUnregistered" {
		return Zone{}, false, nil
	}

	zone := Zone{
		ID:                 elem.Zone.ID,
		Mode:               mapZoneMode(elem.Zone.ZoneState),
		State:              ZoneStateUnknown,
		CurrentTemperature: scaleTemperature(elem.Zone.CurrentTemperature),
		TargetTemperature:  scaleTemperature(elem.Zone.SetTemperature),
		BatteryLevel:       toIntPtr(elem.Zone.BatteryLevel),
		SignalStrength:     toIntPtr(elem.Zone.SignalStrength),
	}

	// Negative humidity is the controller's way of saying "no sensor".
	if elem.Zone.Humidity != nil && *elem.Zone.Humidity >= 0 {
		zone.Humidity = elem.Zone.Humidity
	}

	if elem.Description != nil {
		zone.Name = elem.Description.Name
	}
	if elem.Mode != nil {
		zone.ModeID = elem.Mode.ID
	}
	if elem.Zone.Flags != nil {
		zone.State = mapZoneActivity(decodeLoose(elem.Zone.Flags.RelayState), elem.Zone.Flags.Algorithm)
	}

	for _, w := range elem.WindowsSensors {
		zone.Windows = append(zone.Windows, WindowSensor{
			State:          mapWindowState(w.State),
			BatteryLevel:   toIntPtr(w.BatteryLevel),
			SignalStrength: toIntPtr(w.SignalStrength),
		})
	}

	return zone, true, nil
}

func mapZoneMode(state string) ZoneMode {
	switch state {
	case "zoneOn", "noAlarm":
		return ZoneModeOn
	case "zoneOff":
		return ZoneModeOff
	default:
		return ZoneModeUnknown
	}
}

// mapZoneActivity decides heating/cooling/idle from the relay flag and the
// controller algorithm. A closed relay with an unrecognized algorithm is
// reported as unknown rather than guessed.
func mapZoneActivity(relayState any, algorithm string) ZoneState {
	if !looseBool(relayState) {
		return ZoneStateIdle
	}
	switch algorithm {
	case "heating":
		return ZoneStateHeating
	case "cooling":
		return ZoneStateCooling
	default:
		return ZoneStateUnknown
	}
}

func mapWindowState(state string) WindowState {
	switch state {
	case "open":
		return WindowOpen
	case "closed":
		return WindowClosed
	default:
		return WindowUnknown
	}
}

type rawTile struct {
	ID            int             `json:"id"`
	Type          int             `json:"type"`
	IconID        int             `json:"iconId"`
	Visibility    *bool           `json:"visibility"`
	WorkingStatus json.RawMessage `json:"workingStatus"`
	Params        map[string]any  `json:"params"`
}

// mapTile decodes one tile. Hidden tiles are skipped; unknown types are kept
// with their raw params so newly observed firmware widgets surface instead
// of silently disappearing.
func mapTile(raw json.RawMessage) (Tile, bool, error) {
	var rt rawTile
	if err := json.Unmarshal(raw, &rt); err != nil {
		return Tile{}, false, &MappingError{What: "tile", Err: err}
	}
	if rt.Visibility != nil && !*rt.Visibility {
		return Tile{}, false, nil
	}

	tile := Tile{
		ID:     rt.ID,
		Type:   rt.Type,
		IconID: rt.IconID,
	}
	params := rt.Params
	if params == nil {
		params = map[string]any{}
	}

	switch rt.Type {
	case tileTypeTemperature:
		tile.Kind = TileTemperature
		tile.Value = scaleTemperature(looseFloat(params["value"]))
		tile.Unit = "°C"
		tile.BatteryLevel = toIntPtr(looseFloat(params["batteryLevel"]))
		tile.SignalStrength = toIntPtr(looseFloat(params["signalStrength"]))

	case tileTypeChannelTemperature:
		tile.Kind = TileChannelTemperature
		if widget, ok := params["widget1"].(map[string]any); ok {
			tile.Value = scaleTemperature(looseFloat(widget["value"]))
			tile.TxtID = looseInt(widget["txtId"])
		}
		tile.Unit = "°C"

	case tileTypeRelay, tileTypeFireSensor, tileTypeAdditionalPump:
		switch rt.Type {
		case tileTypeFireSensor:
			tile.Kind = TileFireSensor
		case tileTypeAdditionalPump:
			tile.Kind = TileAdditionalPump
		default:
			tile.Kind = TileRelay
		}
		on := looseBool(params["workingStatus"])
		tile.On = &on

	case tileTypeFan:
		tile.Kind = TileFan
		tile.Value = looseFloat(params["gear"])

	case tileTypeValve, tileTypeMixingValve:
		if rt.Type == tileTypeMixingValve {
			tile.Kind = TileMixingValve
		} else {
			tile.Kind = TileValve
		}
		valve := &ValveParams{
			Number:             looseInt(params["valveNumber"]),
			Opening:            looseFloat(params["openingPercentage"]),
			CurrentTemperature: scaleTemperature(looseFloat(params["currentTemp"])),
			ReturnTemperature:  scaleTemperature(looseFloat(params["returnTemp"])),
			SetTemperature:     looseFloat(params["setTemp"]),
		}
		tile.Valve = valve
		tile.Value = valve.Opening
		tile.Unit = "%"

	case tileTypeFuelSupply:
		tile.Kind = TileFuelSupply
		tile.Value = looseFloat(params["percentage"])
		tile.Unit = "%"

	case tileTypeText:
		tile.Kind = TileText
		tile.TxtID = looseInt(params["headerId"])
		tile.StatusTxtID = looseInt(params["statusId"])

	case tileTypeSoftwareVersion:
		tile.Kind = TileSoftwareVersion
		if version, ok := params["version"].(string); ok {
			tile.Version = version
		}

	default:
		tile.Kind = TileUnknown
		tile.Params = params
	}

	if tile.TxtID == 0 {
		tile.TxtID = looseInt(params["txtId"])
	}

	// A tile-level workingStatus of false marks disabled hardware; keep the
	// tile but expose the flag for relay-like kinds only.
	if rt.WorkingStatus != nil && tile.On == nil && tile.Kind == TileUnknown {
		on := looseBool(decodeLoose(rt.WorkingStatus))
		tile.On = &on
	}

	return tile, true, nil
}

func scaleTemperature(raw *float64) *float64 {
	if raw == nil {
		return nil
	}
	value := *raw / temperatureScale
	return &value
}

func toIntPtr(raw *float64) *int {
	if raw == nil {
		return nil
	}
	value := int(math.Round(*raw))
	return &value
}

// decodeLoose unmarshals a raw message into a dynamically typed value.
// Firmware versions disagree on whether flags are bools, numbers, or
// strings, so loose fields go through this before interpretation.
func decodeLoose(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

func looseBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case float64:
		return typed != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "1", "on", "true", "yes":
			return true
		}
	}
	return false
}

func looseFloat(value any) *float64 {
	switch typed := value.(type) {
	case float64:
		return &typed
	case int:
		converted := float64(typed)
		return &converted
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" || trimmed == "null" {
			return nil
		}
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

func looseInt(value any) int {
	if parsed := looseFloat(value); parsed != nil {
		return int(math.Round(*parsed))
	}
	return 0
}
