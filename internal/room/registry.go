package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/berryhq/berrypoker/internal/poker"
	"github.com/berryhq/berrypoker/internal/roomid"
)

// ErrRoomExists is returned when creating a room under a taken id.
var ErrRoomExists = errors.New("room already exists")

// ErrRoomNotFound is returned by lookups.
var ErrRoomNotFound = errors.New("room not found")

const defaultSweepInterval = time.Hour

// RegistryStore is the slice of the store the registry itself uses,
// on top of what each room needs.
type RegistryStore interface {
	Persister
	LoadRoomStates(cutoff time.Time) (map[string][]byte, error)
	PurgeRoomsBefore(cutoff time.Time) (int64, error)
}

// RegistryConfig wires the registry and the rooms it creates.
type RegistryConfig struct {
	Logger          *log.Logger
	Clock           quartz.Clock
	Store           RegistryStore
	IdleWindow      time.Duration
	SweepInterval   time.Duration
	PersistInterval time.Duration
	HandStartDelay  time.Duration
	TableOptions    []poker.Option
	IDs             *roomid.Generator
}

// Registry is the process-wide room directory. Its lock covers only
// the map; rooms run their own goroutines.
type Registry struct {
	log   *log.Logger
	clock quartz.Clock
	store RegistryStore
	cfg   RegistryConfig
	ids   *roomid.Generator

	mu    sync.RWMutex
	rooms map[string]*Room

	ctx context.Context
	wg  sync.WaitGroup
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.IDs == nil {
		cfg.IDs = roomid.NewGenerator(nil)
	}
	return &Registry{
		log:   cfg.Logger.WithPrefix("registry"),
		clock: cfg.Clock,
		store: cfg.Store,
		cfg:   cfg,
		ids:   cfg.IDs,
		rooms: make(map[string]*Room),
	}
}

// Start recovers persisted rooms inside the freshness window, purges
// the rest and launches the idle sweeper. ctx bounds every room
// goroutine the registry starts.
func (g *Registry) Start(ctx context.Context) error {
	g.ctx = ctx
	if g.store != nil {
		cutoff := g.clock.Now().Add(-g.cfg.IdleWindow)
		if purged, err := g.store.PurgeRoomsBefore(cutoff); err != nil {
			return fmt.Errorf("purge stale rooms: %w", err)
		} else if purged > 0 {
			g.log.Info("purged stale rooms", "count", purged)
		}
		states, err := g.store.LoadRoomStates(cutoff)
		if err != nil {
			return fmt.Errorf("load rooms: %w", err)
		}
		for id, state := range states {
			r, err := Restore(state, g.roomConfig())
			if err != nil {
				// Unreadable snapshots (old schema versions included)
				// are dropped, not fatal.
				g.log.Warn("dropping unrecoverable room", "room", id, "err", err)
				_ = g.store.DeleteRoom(id)
				continue
			}
			g.adopt(r)
			g.log.Info("recovered room", "room", id, "phase", r.table.Phase())
		}
	}
	g.wg.Add(1)
	go g.sweep(ctx)
	return nil
}

// Wait blocks until every room goroutine and the sweeper have exited.
func (g *Registry) Wait() {
	g.wg.Wait()
}

func (g *Registry) roomConfig() Config {
	return Config{
		Logger:          g.cfg.Logger,
		Clock:           g.clock,
		Store:           g.store,
		PersistInterval: g.cfg.PersistInterval,
		HandStartDelay:  g.cfg.HandStartDelay,
		TableOptions:    g.cfg.TableOptions,
		OnClose: func(id string) {
			g.mu.Lock()
			delete(g.rooms, id)
			g.mu.Unlock()
		},
	}
}

func (g *Registry) adopt(r *Room) {
	g.mu.Lock()
	g.rooms[r.ID()] = r
	g.mu.Unlock()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		r.Run(g.ctx)
	}()
}

// CreateRoom makes and starts a room. An empty id gets a generated
// one.
func (g *Registry) CreateRoom(id string, settings poker.Settings) (*Room, error) {
	if id == "" {
		id = g.ids.New()
	}
	g.mu.RLock()
	_, taken := g.rooms[id]
	g.mu.RUnlock()
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrRoomExists, id)
	}
	r, err := New(id, settings, g.roomConfig())
	if err != nil {
		return nil, err
	}
	g.adopt(r)
	g.log.Info("room created", "room", id,
		"blinds", fmt.Sprintf("%d/%d", settings.SmallBlind, settings.BigBlind))
	return r, nil
}

// Get looks a room up by id.
func (g *Registry) Get(id string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return r, nil
}

// Count reports the number of live rooms, for /health.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// sweep purges idle rooms, both live and persisted, on a fixed cadence.
func (g *Registry) sweep(ctx context.Context) {
	defer g.wg.Done()
	ticker := g.clock.NewTicker(g.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := g.clock.Now().Add(-g.cfg.IdleWindow)
			if g.store != nil {
				if purged, err := g.store.PurgeRoomsBefore(cutoff); err != nil {
					g.log.Error("purge rooms", "err", err)
				} else if purged > 0 {
					g.log.Info("purged idle snapshots", "count", purged)
				}
			}
			g.mu.RLock()
			var idle []*Room
			for _, r := range g.rooms {
				if r.LastActive().Before(cutoff) {
					idle = append(idle, r)
				}
			}
			g.mu.RUnlock()
			for _, r := range idle {
				g.log.Info("closing idle room", "room", r.ID())
				r.Stop(true)
			}
		}
	}
}
