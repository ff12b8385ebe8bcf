// Package config loads the tuning file: log settings, launch doctrine and
// triggers, per-campaign profiles and the sandbox match. A YAML file
// overlays Default; every value is clamped by Validate before use.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/rules"
	"github.com/0ad/0ad-sub001/sandbox"
)

// LogConfig selects the log level, format and optional rotating file.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	// File enables a rotating log file instead of stdout.
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// SlogLevel maps Level onto slog, defaulting to Info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type Config struct {
	Log    LogConfig `mapstructure:"log"`
	Socket string    `mapstructure:"socket"`

	// Doctrine generates the launch triggers unless Triggers is set.
	Doctrine rules.Doctrine   `mapstructure:"doctrine"`
	Triggers []*rules.Trigger `mapstructure:"triggers"`

	// Profiles is keyed by campaign type name. Each entry overlays that
	// campaign's built-in profile, so a file only names what it changes.
	Profiles map[string]military.Profile `mapstructure:"-"`

	Match sandbox.Config `mapstructure:"match"`
	Turns int            `mapstructure:"turns"`
}

// Default is the built-in configuration.
func Default() *Config {
	profiles := make(map[string]military.Profile)
	for _, t := range military.AllCampaignTypes() {
		profiles[t.String()] = military.DefaultProfile(t)
	}
	return &Config{
		Log:      LogConfig{Level: "info", MaxSize: 20, MaxBackups: 5, MaxAge: 7},
		Socket:   "/tmp/0ad-sidecar.sock",
		Doctrine: rules.DefaultDoctrine(),
		Profiles: profiles,
		Match:    DefaultMatch(),
		Turns:    1800,
	}
}

// DefaultMatch is a two-player river map with a bridge in the middle.
func DefaultMatch() sandbox.Config {
	const cols, rows = 40, 40
	terrain := make([]string, rows)
	for r := range terrain {
		var b strings.Builder
		for c := 0; c < cols; c++ {
			switch {
			case c < 19 || c > 20:
				b.WriteByte('.')
			case r >= 18 && r <= 21:
				b.WriteByte('=')
			default:
				b.WriteByte('~')
			}
		}
		terrain[r] = b.String()
	}
	return sandbox.Config{
		Seed:       1,
		TurnLength: time.Second,
		CellSize:   10,
		Terrain:    terrain,
		Templates:  sandbox.DefaultTemplates(),
		Players: []sandbox.PlayerSetup{
			{
				ID: 1, Name: "athenians", Home: model.Vec2{X: 60, Y: 200},
				Stock: model.NewResourceVector(600, 600, 300, 300), PopMax: 150, Workers: 8, Soldiers: 4,
				Structures: []string{"Barracks", "Stable", "Dock"},
			},
			{
				ID: 2, Name: "spartans", Home: model.Vec2{X: 340, Y: 200},
				Stock: model.NewResourceVector(600, 600, 300, 300), PopMax: 150, Workers: 8, Soldiers: 4,
				Structures: []string{"Barracks", "Tower"},
			},
		},
		TerritoryRadius: 70,
		FerrySpeed:      12,
	}
}

// LaunchTriggers is the explicit trigger list, or the doctrine's.
func (c *Config) LaunchTriggers() []*rules.Trigger {
	if len(c.Triggers) > 0 {
		return c.Triggers
	}
	return rules.CompileDoctrine(c.Doctrine)
}

// CampaignProfiles resolves the profile names. Validate has rejected
// unknown names already.
func (c *Config) CampaignProfiles() map[military.CampaignType]military.Profile {
	out := make(map[military.CampaignType]military.Profile, len(c.Profiles))
	for name, p := range c.Profiles {
		if t, err := military.ParseCampaignType(name); err == nil {
			out[t] = p
		}
	}
	return out
}

// Validate clamps every tunable to its usable range. It fails only on
// values that cannot be repaired.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	case "":
		c.Log.Level = "info"
	default:
		return fmt.Errorf("log level %q: want debug, info, warn or error", c.Log.Level)
	}
	c.Log.MaxSize = max(1, c.Log.MaxSize)
	c.Log.MaxBackups = max(0, c.Log.MaxBackups)
	c.Log.MaxAge = max(0, c.Log.MaxAge)
	if c.Socket == "" {
		return fmt.Errorf("socket path is empty")
	}

	c.Doctrine.Validate()
	for _, t := range c.Triggers {
		if t.Name == "" || t.ConditionSrc == "" {
			return fmt.Errorf("trigger %q: name and condition are required", t.Name)
		}
	}
	for name, p := range c.Profiles {
		if _, err := military.ParseCampaignType(name); err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
		p.Validate()
		c.Profiles[name] = p
	}

	c.Turns = min(max(c.Turns, 1), 100_000)
	m := &c.Match
	m.TurnLength = min(max(m.TurnLength, 50*time.Millisecond), 10*time.Second)
	if m.CellSize <= 0 {
		m.CellSize = 10
	}
	if len(m.Players) < 2 {
		return fmt.Errorf("match: %w", sandbox.ErrNoPlayers)
	}
	seen := make(map[model.PlayerID]bool)
	for _, p := range m.Players {
		if p.ID <= 0 || seen[p.ID] {
			return fmt.Errorf("match: player id %d is zero or repeated", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
