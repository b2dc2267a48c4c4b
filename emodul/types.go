package emodul

import "time"

// Module describes one physical controller registered to the account.
type Module struct {
	ID               int
	Name             string
	UDID             string
	Version          string
	Type             string
	Style            string
	ControllerStatus string
	ModuleStatus     string
	Default          bool
}

// Active reports whether the controller is worth polling at all.
func (m Module) Active() bool {
	return m.ControllerStatus == "" || m.ControllerStatus == "active"
}

// ZoneMode is the user-facing on/off setting of a zone.
type ZoneMode string

const (
	ZoneModeOn      ZoneMode = "on"
	ZoneModeOff     ZoneMode = "off"
	ZoneModeUnknown ZoneMode = "unknown"
)

// ZoneState is what the zone is actually doing right now.
type ZoneState string

const (
	ZoneStateHeating ZoneState = "heating"
	ZoneStateCooling ZoneState = "cooling"
	ZoneStateIdle    ZoneState = "idle"
	ZoneStateUnknown ZoneState = "unknown"
)

// WindowState reports an open-window sensor attached to a zone.
type WindowState string

const (
	WindowOpen    WindowState = "open"
	WindowClosed  WindowState = "closed"
	WindowUnknown WindowState = "unknown"
)

// Zone is a thermostatic area within a module. Temperatures are degrees
// Celsius; the API reports tenths and the mapper divides them out. Optional
// readings stay nil when the controller does not report them, so callers can
// skip the capability entirely instead of rendering zeros.
type Zone struct {
	ID                 int
	Name               string
	Mode               ZoneMode
	State              ZoneState
	CurrentTemperature *float64
	TargetTemperature  *float64
	Humidity           *float64
	BatteryLevel       *int
	SignalStrength     *int

	// ModeID is the controller-side id of the zone's mode record; the
	// constant-temperature write operation has to echo it back.
	ModeID int

	Windows []WindowSensor
}

// WindowSensor is one open-window sensor reading.
type WindowSensor struct {
	State          WindowState
	BatteryLevel   *int
	SignalStrength *int
}

// TileKind tags the decoded variant of a tile.
type TileKind string

const (
	TileTemperature        TileKind = "temperature"
	TileFireSensor         TileKind = "fire_sensor"
	TileChannelTemperature TileKind = "channel_temperature"
	TileRelay              TileKind = "relay"
	TileAdditionalPump     TileKind = "additional_pump"
	TileFan                TileKind = "fan"
	TileValve              TileKind = "valve"
	TileMixingValve        TileKind = "mixing_valve"
	TileFuelSupply         TileKind = "fuel_supply"
	TileText               TileKind = "text"
	TileSoftwareVersion    TileKind = "software_version"
	TileUnknown            TileKind = "unknown"
)

// Raw tile type ids as reported by the API.
const (
	tileTypeTemperature        = 1
	tileTypeFireSensor         = 2
	tileTypeChannelTemperature = 6
	tileTypeRelay              = 11
	tileTypeAdditionalPump     = 21
	tileTypeFan                = 22
	tileTypeValve              = 23
	tileTypeMixingValve        = 24
	tileTypeFuelSupply         = 31
	tileTypeText               = 40
	tileTypeSoftwareVersion    = 50
)

// ValveParams carries the extra readings a (mixing) valve tile reports.
type ValveParams struct {
	Number             int
	Opening            *float64
	CurrentTemperature *float64
	ReturnTemperature  *float64
	SetTemperature     *float64
}

// Tile is a generic sensor/state widget reported by the controller. Kind
// selects which of the optional fields are populated; unrecognized type ids
// map to TileUnknown with the raw params preserved rather than being dropped.
type Tile struct {
	ID   int
	Type int
	Kind TileKind

	// TxtID is the vendor text id naming the tile; resolve it through
	// Translations. Zero means the kind-level fallback label applies.
	TxtID  int
	IconID int

	// Value is the primary decoded reading for numeric kinds, in Unit.
	Value *float64
	Unit  string

	// On is set for relay-like kinds (relay, pump, fire sensor).
	On *bool

	BatteryLevel   *int
	SignalStrength *int

	Valve *ValveParams

	// StatusTxtID names the current status of a text tile.
	StatusTxtID int

	// Version is the firmware string of a software-version tile.
	Version string

	// Params holds the raw tile params for unknown kinds.
	Params map[string]any
}

// Snapshot is the complete, internally consistent zone+tile set for one
// module at one poll instant. A snapshot is only ever published whole;
// callers keep their previous one when a fetch fails.
type Snapshot struct {
	Zones     []Zone
	Tiles     []Tile
	FetchedAt time.Time
}

// Zone returns the zone with the given id, if present.
func (s Snapshot) Zone(id int) (Zone, bool) {
	for _, zone := range s.Zones {
		if zone.ID == id {
			return zone, true
		}
	}
	return Zone{}, false
}

// Tile returns the tile with the given id, if present.
func (s Snapshot) Tile(id int) (Tile, bool) {
	for _, tile := range s.Tiles {
		if tile.ID == id {
			return tile, true
		}
	}
	return Tile{}, false
}
