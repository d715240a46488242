package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.normalise())
	require.Equal(t, EnvDev, cfg.Environment)
	require.Equal(t, 16, cfg.Pools["projectile"].Prewarm)
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
environment: STAGING
logLevel: Debug
pools:
  Projectile:
    prewarm: 8
    strict: true
  spark:
    prewarm: 0
spawner:
  lifetimeTicks: 3
  spawnsPerSecond: 20
  tickInterval: 25ms
`))
	require.NoError(t, err)
	require.Equal(t, EnvStaging, cfg.Environment)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, []string{"projectile", "spark"}, cfg.PoolNames())
	require.Equal(t, PoolSettings{Prewarm: 8, Strict: true}, cfg.Pools["projectile"])
	require.Equal(t, 3, cfg.Spawner.LifetimeTicks)
	require.Equal(t, 20.0, cfg.Spawner.SpawnsPerSecond)
	require.Equal(t, 25*time.Millisecond, cfg.Spawner.TickInterval)
	require.Equal(t, 100, cfg.Spawner.Burst)
}

func TestDecodeEmptyUsesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, []string{"projectile"}, cfg.PoolNames())
}

func TestDecodeRejectsNegativePrewarm(t *testing.T) {
	_, err := Decode(strings.NewReader("pools:\n  projectile:\n    prewarm: -2\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "prewarm must be >= 0")
}

func TestDecodeRejectsDuplicatePoolNames(t *testing.T) {
	_, err := Decode(strings.NewReader("pools:\n  Spark: {}\n  spark: {}\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate pool name")
}

func TestDecodeRejectsMalformedYAML(t *testing.T) {
	_, err := Decode(strings.NewReader("pools: [unterminated"))
	require.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.False(t, loaded)
	require.Equal(t, Default().Spawner, cfg.Spawner)

	path := filepath.Join(t.TempDir(), "spawnpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pools:\n  bolt:\n    prewarm: 2\n"), 0o600))
	cfg, loaded, err = LoadOrDefault(path)
	require.NoError(t, err)
	require.True(t, loaded)
	require.Equal(t, []string{"bolt"}, cfg.PoolNames())
}
