package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// configMu guards the cached config instance.
var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load builds the configuration and caches it for GetConfig.
//
// Precedence, highest first:
//  1. Runtime overrides (the optional overrides argument)
//  2. Environment variables (NAVCONV_*)
//  3. Config file (navconv.yaml in the working directory, if present)
//  4. Built-in defaults
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	for key, env := range envBindings() {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	v.SetConfigName("navconv")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for _, o := range overrides {
		if err := v.MergeConfigMap(o); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
		// MergeConfigMap sits below explicit Set in viper precedence, so
		// flatten override maps into Set calls to win over env vars.
		setAll(v, "", o)
	}

	// Durations arrive as strings from env vars and the config file.
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil when
// Load has not run.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setAll applies a nested override map via viper.Set so runtime overrides
// take precedence over every other source.
func setAll(v *viper.Viper, prefix string, m map[string]any) {
	for key, val := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			setAll(v, full, nested)
			continue
		}
		v.Set(full, val)
	}
}
