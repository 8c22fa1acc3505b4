// Package config loads the optional HCL configuration file. Flags give
// every setting a default; the file overrides them and can provision
// rooms at startup.
package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/berryhq/berrypoker/internal/poker"
)

// File is the root of a berrypoker.hcl document:
//
//	server {
//	  host             = "0.0.0.0"
//	  port             = 8080
//	  db_path          = "./berrypoker.db"
//	  idle_window      = "24h"
//	  persist_interval = "30s"
//	  hand_start_delay = "1s"
//	  cors_origins     = ["*"]
//	}
//
//	room "friday-night" {
//	  small_blind = 1
//	  big_blind   = 2
//	  min_buy_in  = 40
//	  max_buy_in  = 200
//	}
type File struct {
	Server *ServerBlock `hcl:"server,block"`
	Rooms  []RoomBlock  `hcl:"room,block"`
}

// ServerBlock overrides server settings. Unset attributes keep the
// flag value.
type ServerBlock struct {
	Host            *string  `hcl:"host,optional"`
	Port            *int     `hcl:"port,optional"`
	DBPath          *string  `hcl:"db_path,optional"`
	IdleWindow      *string  `hcl:"idle_window,optional"`
	PersistInterval *string  `hcl:"persist_interval,optional"`
	HandStartDelay  *string  `hcl:"hand_start_delay,optional"`
	CORSOrigins     []string `hcl:"cors_origins,optional"`
	Debug           *bool    `hcl:"debug,optional"`
}

// RoomBlock provisions a room with a fixed id at startup.
type RoomBlock struct {
	Name       string `hcl:"name,label"`
	SmallBlind int    `hcl:"small_blind,optional"`
	BigBlind   int    `hcl:"big_blind,optional"`
	MinBuyIn   int    `hcl:"min_buy_in,optional"`
	MaxBuyIn   int    `hcl:"max_buy_in,optional"`
}

// Settings converts a room block to table settings, filling gaps from
// the defaults.
func (rb RoomBlock) Settings() poker.Settings {
	s := poker.DefaultSettings()
	if rb.SmallBlind > 0 {
		s.SmallBlind = rb.SmallBlind
	}
	if rb.BigBlind > 0 {
		s.BigBlind = rb.BigBlind
	}
	if rb.MinBuyIn > 0 {
		s.MinBuyIn = rb.MinBuyIn
	}
	if rb.MaxBuyIn > 0 {
		s.MaxBuyIn = rb.MaxBuyIn
	}
	return s
}

// Load parses and validates an HCL config file.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}
	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", path, diags.Error())
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Server != nil {
		for _, field := range []struct {
			name  string
			value *string
		}{
			{"idle_window", f.Server.IdleWindow},
			{"persist_interval", f.Server.PersistInterval},
			{"hand_start_delay", f.Server.HandStartDelay},
		} {
			if field.value == nil {
				continue
			}
			if _, err := time.ParseDuration(*field.value); err != nil {
				return fmt.Errorf("server.%s: %w", field.name, err)
			}
		}
		if f.Server.Port != nil && (*f.Server.Port < 1 || *f.Server.Port > 65535) {
			return fmt.Errorf("server.port: %d out of range", *f.Server.Port)
		}
	}
	seen := map[string]bool{}
	for _, rb := range f.Rooms {
		if rb.Name == "" {
			return fmt.Errorf("room label must not be empty")
		}
		if seen[rb.Name] {
			return fmt.Errorf("duplicate room %q", rb.Name)
		}
		seen[rb.Name] = true
		if err := rb.Settings().Validate(); err != nil {
			return fmt.Errorf("room %q: %w", rb.Name, err)
		}
	}
	return nil
}

// Duration parses a duration attribute that validate already vetted.
func Duration(s *string, fallback time.Duration) time.Duration {
	if s == nil {
		return fallback
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fallback
	}
	return d
}
