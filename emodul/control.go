package emodul

import (
	"context"
	"encoding/json"
	"net/http"
)

// SetConstTemp switches a zone to constant-temperature mode at the given
// target, in degrees Celsius. The zone comes from a current snapshot: the
// API requires its mode record id to be echoed back.
func (c *Client) SetConstTemp(ctx context.Context, udid string, zone Zone, targetC float64) error {
	payload, err := json.Marshal(map[string]any{
		"mode": map[string]any{
			"id":             zone.ModeID,
			"parentId":       zone.ID,
			"mode":           "constantTemp",
			"constTempTime":  60,
			"setTemperature": int(targetC * temperatureScale),
			"scheduleIndex":  0,
		},
	})
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, func(s Session) string {
		return "users/" + s.UserID + "/modules/" + udid + "/zones"
	}, payload, nil)
}

// SetZone turns a zone on or off.
func (c *Client) SetZone(ctx context.Context, udid string, zoneID int, on bool) error {
	state := "zoneOff"
	if on {
		state = "zoneOn"
	}
	payload, err := json.Marshal(map[string]any{
		"zone": map[string]any{
			"id":        zoneID,
			"zoneState": state,
		},
	})
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, func(s Session) string {
		return "users/" + s.UserID + "/modules/" + udid + "/zones"
	}, payload, nil)
}
