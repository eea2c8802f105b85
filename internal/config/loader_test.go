package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)

		assert.Equal(t, 2, cfg.Jobs.Workers)
		assert.Equal(t, 2*time.Second, cfg.Jobs.PollInterval)

		assert.Equal(t, "gpt-4o-mini", cfg.Codegen.Model)
		assert.Equal(t, 60*time.Second, cfg.Codegen.Timeout)

		assert.Equal(t, "python3", cfg.Sandbox.Interpreter)
		assert.Equal(t, 2*time.Minute, cfg.Sandbox.Timeout)

		assert.Equal(t, "local", cfg.Storage.Backend)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Non-overridden values keep defaults
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
		assert.Equal(t, 2, cfg.Jobs.Workers)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		require.NoError(t, os.Setenv("NAVCONV_PORT", "3000"))
		require.NoError(t, os.Setenv("NAVCONV_LOG_LEVEL", "warn"))
		require.NoError(t, os.Setenv("NAVCONV_SANDBOX_INTERPRETER", "python3.12"))
		defer func() {
			_ = os.Unsetenv("NAVCONV_PORT")
			_ = os.Unsetenv("NAVCONV_LOG_LEVEL")
			_ = os.Unsetenv("NAVCONV_SANDBOX_INTERPRETER")
		}()

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "python3.12", cfg.Sandbox.Interpreter)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		require.NoError(t, os.Setenv("NAVCONV_PORT", "4000"))
		defer func() {
			_ = os.Unsetenv("NAVCONV_PORT")
		}()

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Runtime override wins over env var
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Run("GetConfigReturnsLoadedConfig", func(t *testing.T) {
		retrieved := GetConfig()
		assert.NotNil(t, retrieved)
		assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
		assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
	})
}

func TestEnvBindings(t *testing.T) {
	bindings := envBindings()
	assert.NotEmpty(t, bindings)

	envVarNames := make(map[string]bool)
	for _, name := range bindings {
		envVarNames[name] = true
	}

	assert.True(t, envVarNames["NAVCONV_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["NAVCONV_PORT"], "PORT env var must be mapped")
	assert.True(t, envVarNames["NAVCONV_HOST"], "HOST env var must be mapped")
	assert.True(t, envVarNames["NAVCONV_DATA_DIR"], "DATA_DIR env var must be mapped")
}

func TestDurationParsing(t *testing.T) {
	ctx := context.Background()

	t.Run("DurationFromEnv", func(t *testing.T) {
		require.NoError(t, os.Setenv("NAVCONV_READ_TIMEOUT", "45s"))
		require.NoError(t, os.Setenv("NAVCONV_SHUTDOWN_TIMEOUT", "5m"))
		defer func() {
			_ = os.Unsetenv("NAVCONV_READ_TIMEOUT")
			_ = os.Unsetenv("NAVCONV_SHUTDOWN_TIMEOUT")
		}()

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
	})
}

func TestConfigReload(t *testing.T) {
	ctx := context.Background()

	cfg1, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg1)
	initialPort := cfg1.Server.Port

	overrides := map[string]any{
		"server": map[string]any{
			"port": initialPort + 1000,
		},
	}

	cfg2, err := Load(ctx, overrides)
	require.NoError(t, err)
	require.NotNil(t, cfg2)

	assert.Equal(t, initialPort+1000, cfg2.Server.Port)

	current := GetConfig()
	assert.Equal(t, cfg2.Server.Port, current.Server.Port)
}
