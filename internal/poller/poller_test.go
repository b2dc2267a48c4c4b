package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshp123/emodul-golang/emodul"
)

type fakeSource struct {
	mu       sync.Mutex
	modules  []emodul.Module
	listErr  error
	states   map[string]emodul.Snapshot
	stateErr map[string]error
	calls    map[string]int
}

func (f *fakeSource) ListModules(context.Context) ([]emodul.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.modules, nil
}

func (f *fakeSource) ModuleState(_ context.Context, udid string) (emodul.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[udid]++
	if err := f.stateErr[udid]; err != nil {
		return emodul.Snapshot{}, err
	}
	return f.states[udid], nil
}

func (f *fakeSource) set(udid string, snapshot emodul.Snapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.states == nil {
		f.states = make(map[string]emodul.Snapshot)
	}
	if f.stateErr == nil {
		f.stateErr = make(map[string]error)
	}
	f.states[udid] = snapshot
	f.stateErr[udid] = err
}

func snapshotWithZone(id int, temp float64) emodul.Snapshot {
	return emodul.Snapshot{
		Zones:     []emodul.Zone{{ID: id, CurrentTemperature: &temp}},
		FetchedAt: time.Now(),
	}
}

func TestRefreshRecordsSnapshots(t *testing.T) {
	source := &fakeSource{
		modules: []emodul.Module{
			{ID: 0, Name: "L-8", UDID: "udid-1", ControllerStatus: "active"},
			{ID: 1, Name: "Unplugged", UDID: "udid-2", ControllerStatus: "inactive"},
		},
	}
	source.set("udid-1", snapshotWithZone(101, 21.5), nil)

	p := New(Config{Source: source, Interval: time.Minute})
	p.Refresh(context.Background())

	state, ok := p.State("udid-1")
	require.True(t, ok)
	require.NotNil(t, state.Snapshot)
	assert.Len(t, state.Snapshot.Zones, 1)
	assert.Empty(t, state.LastError)

	// Inactive controllers are not polled.
	_, ok = p.State("udid-2")
	assert.False(t, ok)
	assert.Zero(t, source.calls["udid-2"])
}

func TestRefreshKeepsLastGoodSnapshot(t *testing.T) {
	source := &fakeSource{
		modules: []emodul.Module{{Name: "L-8", UDID: "udid-1", ControllerStatus: "active"}},
	}
	source.set("udid-1", snapshotWithZone(101, 21.5), nil)

	p := New(Config{Source: source, Interval: time.Minute})
	p.Refresh(context.Background())

	source.set("udid-1", emodul.Snapshot{}, errors.New("cloud down"))
	p.Refresh(context.Background())

	state, ok := p.State("udid-1")
	require.True(t, ok)
	require.NotNil(t, state.Snapshot, "failed poll must keep the previous snapshot")
	assert.Equal(t, "cloud down", state.LastError)
	assert.False(t, state.LastErrorAt.IsZero())

	// A later success clears the error.
	source.set("udid-1", snapshotWithZone(101, 22.0), nil)
	p.Refresh(context.Background())
	state, _ = p.State("udid-1")
	assert.Empty(t, state.LastError)
	assert.Equal(t, 22.0, *state.Snapshot.Zones[0].CurrentTemperature)
}

func TestRefreshNeverFetchedVsStale(t *testing.T) {
	source := &fakeSource{
		modules: []emodul.Module{{Name: "L-8", UDID: "udid-1", ControllerStatus: "active"}},
	}
	source.set("udid-1", emodul.Snapshot{}, errors.New("boom"))

	p := New(Config{Source: source, Interval: time.Minute})
	p.Refresh(context.Background())

	state, ok := p.State("udid-1")
	require.True(t, ok)
	assert.Nil(t, state.Snapshot, "never-fetched module must expose no snapshot")
	assert.True(t, state.Stale(time.Minute))
}

func TestRefreshModuleFilter(t *testing.T) {
	source := &fakeSource{
		modules: []emodul.Module{
			{Name: "A", UDID: "udid-1", ControllerStatus: "active"},
			{Name: "B", UDID: "udid-2", ControllerStatus: "active"},
		},
	}
	source.set("udid-1", snapshotWithZone(1, 20.0), nil)
	source.set("udid-2", snapshotWithZone(2, 20.0), nil)

	p := New(Config{Source: source, Interval: time.Minute, Modules: []string{"udid-2"}})
	p.Refresh(context.Background())

	assert.Zero(t, source.calls["udid-1"])
	assert.Equal(t, 1, source.calls["udid-2"])
}

func TestRefreshListErrorMarksAllModules(t *testing.T) {
	source := &fakeSource{
		modules: []emodul.Module{{Name: "L-8", UDID: "udid-1", ControllerStatus: "active"}},
	}
	source.set("udid-1", snapshotWithZone(101, 21.5), nil)

	p := New(Config{Source: source, Interval: time.Minute})
	p.Refresh(context.Background())

	source.mu.Lock()
	source.listErr = errors.New("unreachable")
	source.mu.Unlock()
	p.Refresh(context.Background())

	state, _ := p.State("udid-1")
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, "unreachable", state.LastError)
}

func TestOnUpdateCallback(t *testing.T) {
	source := &fakeSource{
		modules: []emodul.Module{{Name: "L-8", UDID: "udid-1", ControllerStatus: "active"}},
	}
	source.set("udid-1", snapshotWithZone(101, 21.5), nil)

	var mu sync.Mutex
	var updates []string
	p := New(Config{
		Source:   source,
		Interval: time.Minute,
		OnUpdate: func(module emodul.Module, _ emodul.Snapshot) {
			mu.Lock()
			updates = append(updates, module.UDID)
			mu.Unlock()
		},
	})
	p.Refresh(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"udid-1"}, updates)
}
