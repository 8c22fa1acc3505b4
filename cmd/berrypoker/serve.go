package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/berryhq/berrypoker/internal/config"
	"github.com/berryhq/berrypoker/internal/room"
	"github.com/berryhq/berrypoker/internal/server"
	"github.com/berryhq/berrypoker/internal/store"
)

// ServeCmd runs the poker server until interrupted.
type ServeCmd struct {
	Host            string        `help:"Bind host" default:"0.0.0.0"`
	Port            int           `help:"Listen port" default:"8080"`
	DB              string        `help:"SQLite database path" default:"./berrypoker.db"`
	IdleWindow      time.Duration `help:"Room purge and recovery horizon" default:"24h"`
	PersistInterval time.Duration `help:"Maximum dirty-snapshot age" default:"30s"`
	HandStartDelay  time.Duration `help:"Pause before dealing the next hand" default:"1s"`
	CORSOrigins     []string      `help:"Allowed CORS origins" default:"*"`
	Config          string        `help:"Optional HCL config file" type:"existingfile" optional:""`

	file *config.File `kong:"-"`
}

func (c *ServeCmd) Run(logger *log.Logger) error {
	if err := c.applyConfigFile(logger); err != nil {
		return err
	}

	st, err := store.Open(c.DB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := room.NewRegistry(room.RegistryConfig{
		Logger:          logger,
		Store:           st,
		IdleWindow:      c.IdleWindow,
		PersistInterval: c.PersistInterval,
		HandStartDelay:  c.HandStartDelay,
	})
	if err := registry.Start(ctx); err != nil {
		return fmt.Errorf("start registry: %w", err)
	}
	if err := c.provisionRooms(registry, logger); err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:        net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		CORSOrigins: c.CORSOrigins,
	}, registry, st, logger)

	logger.Info("berrypoker starting",
		"addr", fmt.Sprintf("%s:%d", c.Host, c.Port),
		"db", c.DB,
		"rooms", registry.Count())

	err = srv.Run(ctx)
	// Rooms flush their snapshots as the context unwinds.
	registry.Wait()
	logger.Info("shutdown complete")
	return err
}

// applyConfigFile overlays the optional HCL file onto the flag values.
func (c *ServeCmd) applyConfigFile(logger *log.Logger) error {
	if c.Config == "" {
		return nil
	}
	f, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	c.file = f
	if f.Server == nil {
		return nil
	}
	if f.Server.Host != nil {
		c.Host = *f.Server.Host
	}
	if f.Server.Port != nil {
		c.Port = *f.Server.Port
	}
	if f.Server.DBPath != nil {
		c.DB = *f.Server.DBPath
	}
	c.IdleWindow = config.Duration(f.Server.IdleWindow, c.IdleWindow)
	c.PersistInterval = config.Duration(f.Server.PersistInterval, c.PersistInterval)
	c.HandStartDelay = config.Duration(f.Server.HandStartDelay, c.HandStartDelay)
	if len(f.Server.CORSOrigins) > 0 {
		c.CORSOrigins = f.Server.CORSOrigins
	}
	if f.Server.Debug != nil && *f.Server.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return nil
}

// provisionRooms creates the rooms named in the config file, skipping
// any that recovery already brought back.
func (c *ServeCmd) provisionRooms(registry *room.Registry, logger *log.Logger) error {
	if c.file == nil {
		return nil
	}
	for _, rb := range c.file.Rooms {
		if _, err := registry.Get(rb.Name); err == nil {
			continue
		}
		if _, err := registry.CreateRoom(rb.Name, rb.Settings()); err != nil {
			if errors.Is(err, room.ErrRoomExists) {
				continue
			}
			return fmt.Errorf("provision room %q: %w", rb.Name, err)
		}
		logger.Info("provisioned room", "room", rb.Name)
	}
	return nil
}
