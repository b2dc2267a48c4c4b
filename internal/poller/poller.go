package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/joshp123/emodul-golang/emodul"
)

// StateSource is the slice of the cloud client the poller needs.
type StateSource interface {
	ListModules(ctx context.Context) ([]emodul.Module, error)
	ModuleState(ctx context.Context, udid string) (emodul.Snapshot, error)
}

// ModuleState is the poller's view of one controller: its descriptor, the
// last good snapshot, and the last error if the most recent poll failed.
// A nil Snapshot means the module has never been fetched successfully,
// which is different from holding stale data.
type ModuleState struct {
	Module   emodul.Module
	Snapshot *emodul.Snapshot

	LastError   string
	LastErrorAt time.Time
}

// Stale reports whether the held snapshot is older than the given age.
func (s ModuleState) Stale(maxAge time.Duration) bool {
	return s.Snapshot == nil || time.Since(s.Snapshot.FetchedAt) > maxAge
}

// Config wires a Poller.
type Config struct {
	Source   StateSource
	Interval time.Duration

	// Modules restricts polling to the listed udids; empty polls every
	// active controller.
	Modules []string

	// OnUpdate fires after each successful module poll, outside the
	// poller's lock. Used by the MQTT bridge.
	OnUpdate func(emodul.Module, emodul.Snapshot)
}

// Poller refreshes module snapshots on a fixed cadence. A failed poll keeps
// the previous snapshot and records the error, so readers always see the
// last data that was actually true.
type Poller struct {
	source   StateSource
	interval time.Duration
	filter   map[string]bool
	onUpdate func(emodul.Module, emodul.Snapshot)

	mu    sync.RWMutex
	state map[string]*ModuleState
}

func New(cfg Config) *Poller {
	filter := make(map[string]bool, len(cfg.Modules))
	for _, udid := range cfg.Modules {
		filter[udid] = true
	}
	return &Poller{
		source:   cfg.Source,
		interval: cfg.Interval,
		filter:   filter,
		onUpdate: cfg.OnUpdate,
		state:    make(map[string]*ModuleState),
	}
}

// Run polls until the context is cancelled. The first refresh happens
// immediately so consumers do not wait a full interval for data.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh performs one poll cycle: list modules, then fetch the state of
// each polled module concurrently.
func (p *Poller) Refresh(ctx context.Context) {
	modules, err := p.source.ListModules(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list modules failed")
		p.recordListError(err)
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, module := range modules {
		if !p.polled(module) {
			continue
		}
		module := module
		group.Go(func() error {
			snapshot, err := p.source.ModuleState(groupCtx, module.UDID)
			if err != nil {
				log.Warn().Err(err).Str("udid", module.UDID).Str("module", module.Name).Msg("module poll failed")
				p.recordError(module, err)
				return nil
			}
			p.record(module, snapshot)
			if p.onUpdate != nil {
				p.onUpdate(module, snapshot)
			}
			return nil
		})
	}
	_ = group.Wait()
}

func (p *Poller) polled(module emodul.Module) bool {
	if len(p.filter) > 0 {
		return p.filter[module.UDID]
	}
	return module.Active()
}

func (p *Poller) record(module emodul.Module, snapshot emodul.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := p.entry(module)
	entry.Snapshot = &snapshot
	entry.LastError = ""
}

func (p *Poller) recordError(module emodul.Module, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry := p.entry(module)
	entry.LastError = err.Error()
	entry.LastErrorAt = time.Now()
}

// recordListError marks every known module failed; nothing was reachable.
func (p *Poller) recordListError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for _, entry := range p.state {
		entry.LastError = err.Error()
		entry.LastErrorAt = now
	}
}

// entry returns the state record for a module, creating it on first sight.
// Callers hold p.mu.
func (p *Poller) entry(module emodul.Module) *ModuleState {
	existing, ok := p.state[module.UDID]
	if !ok {
		existing = &ModuleState{}
		p.state[module.UDID] = existing
	}
	existing.Module = module
	return existing
}

// States returns a copy of the current per-module state.
func (p *Poller) States() map[string]ModuleState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]ModuleState, len(p.state))
	for udid, entry := range p.state {
		out[udid] = *entry
	}
	return out
}

// State returns the record for one module.
func (p *Poller) State(udid string) (ModuleState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.state[udid]
	if !ok {
		return ModuleState{}, false
	}
	return *entry, true
}
