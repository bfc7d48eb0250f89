package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainwalk/recudns/internal/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:1053", cfg.LocalServer.FullDomain())
	assert.Equal(t, "198.41.0.4:53", cfg.RootServer.FullDomain())
	assert.Equal(t, 16, cfg.Resolver.MaxHops)
	assert.False(t, cfg.Admin.Enabled)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("RECUDNS_LOCAL_SERVER_PORT", "5353")
	t.Setenv("RECUDNS_RESOLVER_MAX_HOPS", "4")
	t.Setenv("RECUDNS_LOGGING_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 5353, cfg.LocalServer.Port)
	assert.Equal(t, 4, cfg.Resolver.MaxHops)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("RECUDNS_LOCAL_SERVER_PORT", "0")
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestUseTestDatabaseProducesDistinctPaths(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.UseTestDatabase(dir)
	first := cfg.Database.Path

	cfg.UseTestDatabase(dir)
	second := cfg.Database.Path

	assert.NotEqual(t, first, second)
	assert.Contains(t, first, dir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	content := "local_server:\n  addr: 127.0.0.1\n  port: 9999\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.LocalServer.FullDomain())
}
