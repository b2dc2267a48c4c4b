package emodul

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ListModules lists the controllers available to the account, in server
// order. An empty list is a valid result, not an error.
func (c *Client) ListModules(ctx context.Context) ([]Module, error) {
	var resp []struct {
		ID               int             `json:"id"`
		Name             string          `json:"name"`
		UDID             string          `json:"udid"`
		Version          string          `json:"version"`
		Type             string          `json:"type"`
		Style            string          `json:"style"`
		ControllerStatus string          `json:"controllerStatus"`
		ModuleStatus     string          `json:"moduleStatus"`
		Default          json.RawMessage `json:"default"`
	}

	err := c.call(ctx, http.MethodGet, func(s Session) string {
		return "users/" + s.UserID + "/modules"
	}, nil, &resp)
	if err != nil {
		return nil, err
	}

	modules := make([]Module, 0, len(resp))
	for _, m := range resp {
		modules = append(modules, Module{
			ID:               m.ID,
			Name:             m.Name,
			UDID:             m.UDID,
			Version:          m.Version,
			Type:             m.Type,
			Style:            m.Style,
			ControllerStatus: m.ControllerStatus,
			ModuleStatus:     m.ModuleStatus,
			Default:          looseBool(decodeLoose(m.Default)),
		})
	}
	return modules, nil
}

// ModuleState fetches the current zones and tiles of one module in a single
// round trip and maps them into a Snapshot. The fetch is stateless: the
// result never depends on a previous poll, and a failure yields no snapshot
// at all rather than a partial one.
func (c *Client) ModuleState(ctx context.Context, udid string) (Snapshot, error) {
	var resp struct {
		Zones struct {
			Elements []json.RawMessage `json:"elements"`
		} `json:"zones"`
		Tiles []json.RawMessage `json:"tiles"`
	}

	err := c.call(ctx, http.MethodGet, func(s Session) string {
		return "users/" + s.UserID + "/modules/" + udid
	}, nil, &resp)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot, err := MapSnapshot(resp.Zones.Elements, resp.Tiles)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.FetchedAt = time.Now()
	return snapshot, nil
}
