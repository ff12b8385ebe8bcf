package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/0ad/0ad-sub001/military"
)

// decodeHook lets files write tag sets and campaign types by name and
// durations as "90s".
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ZAD")
	v.AutomaticEnv()
	return v
}

// Load reads path over Default. An empty path is Default alone.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for name, raw := range v.GetStringMap("profiles") {
		kind, err := military.ParseCampaignType(name)
		if err != nil {
			return nil, fmt.Errorf("profiles: %w", err)
		}
		p := military.DefaultProfile(kind)
		if err := decodeInto(raw, &p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", kind, err)
		}
		cfg.Profiles[kind.String()] = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeInto overlays raw onto out, leaving fields raw does not name.
func decodeInto(raw any, out any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return d.Decode(raw)
}

// Watch loads path and calls apply on every successful change. A file
// that fails to decode or validate is logged and the last good config
// stays in force.
func Watch(path string, apply func(*Config)) (*Config, error) {
	if path == "" {
		return Load("")
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			slog.Error("config reload rejected", "file", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		apply(next)
	})
	v.WatchConfig()
	return cfg, nil
}
