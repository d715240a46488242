package spawner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/spawnpool/config"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/internal/pool"
)

func newSpawner(t *testing.T, poolSettings config.PoolSettings, settings config.SpawnerSettings) *Spawner {
	t.Helper()
	p, err := NewProjectilePool("projectile", poolSettings, observability.Nop(), nil)
	require.NoError(t, err)
	s, err := New(p, settings, observability.Nop())
	require.NoError(t, err)
	return s
}

func fastSettings(lifetime int) config.SpawnerSettings {
	return config.SpawnerSettings{LifetimeTicks: lifetime, SpawnsPerSecond: 1e6, Burst: 1000}
}

func TestNewProjectileHasIdentity(t *testing.T) {
	a, err := NewProjectile()
	require.NoError(t, err)
	b, err := NewProjectile()
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, pool.IdentityRotation, a.Rotation)
	require.False(t, a.IsActive())
}

func TestSpawnPlacesProjectile(t *testing.T) {
	s := newSpawner(t, config.PoolSettings{Prewarm: 2}, fastSettings(3))
	rot := pool.Rotation{Z: 1}

	p, err := s.Spawn(pool.Vector3{X: 1}, rot, pool.Vector3{Y: 2})
	require.NoError(t, err)
	require.True(t, p.IsActive())
	require.Equal(t, pool.Vector3{X: 1}, p.Position)
	require.Equal(t, rot, p.Rotation)
	require.Equal(t, pool.Vector3{Y: 2}, p.Velocity)
	require.Equal(t, 3, p.TicksLeft())
	require.Equal(t, 1, s.Live())
	require.Equal(t, 1, s.Pool().Idle())
}

func TestTickExpiresAndReturnsToPool(t *testing.T) {
	s := newSpawner(t, config.PoolSettings{}, fastSettings(2))

	p, err := s.Spawn(pool.Vector3{}, pool.IdentityRotation, pool.Vector3{X: 1})
	require.NoError(t, err)

	require.Zero(t, s.Tick())
	require.Equal(t, pool.Vector3{X: 1}, p.Position)
	require.Equal(t, 1, s.Live())

	require.Equal(t, 1, s.Tick())
	require.Zero(t, s.Live())
	require.False(t, p.IsActive())
	require.Zero(t, p.TicksLeft())
	require.Equal(t, 1, s.Pool().Idle())

	again, err := s.Spawn(pool.Vector3{}, pool.IdentityRotation, pool.Vector3{})
	require.NoError(t, err)
	require.Same(t, p, again)
	require.Equal(t, uint64(1), s.Pool().Stats().Constructed)
}

func TestSpawnReusesWithoutGrowthUnderChurn(t *testing.T) {
	s := newSpawner(t, config.PoolSettings{Prewarm: 4, Strict: true}, fastSettings(1))

	for round := 0; round < 10; round++ {
		for i := 0; i < 4; i++ {
			_, err := s.Spawn(pool.Vector3{}, pool.IdentityRotation, pool.Vector3{})
			require.NoError(t, err)
		}
		require.Equal(t, 4, s.Tick())
	}
	stats := s.Pool().Stats()
	require.Equal(t, uint64(4), stats.Constructed)
	require.Equal(t, 4, stats.Idle)
	require.Zero(t, stats.Rejected)
}

func TestSpawnThrottled(t *testing.T) {
	s := newSpawner(t, config.PoolSettings{}, config.SpawnerSettings{LifetimeTicks: 1, SpawnsPerSecond: 0.001, Burst: 1})

	_, err := s.Spawn(pool.Vector3{}, pool.IdentityRotation, pool.Vector3{})
	require.NoError(t, err)
	_, err = s.Spawn(pool.Vector3{}, pool.IdentityRotation, pool.Vector3{})
	require.ErrorIs(t, err, ErrThrottled)
	require.Equal(t, uint64(1), s.Pool().Stats().Pulls)
}

func TestClearReturnsEverything(t *testing.T) {
	s := newSpawner(t, config.PoolSettings{}, fastSettings(100))
	for i := 0; i < 3; i++ {
		_, err := s.Spawn(pool.Vector3{}, pool.IdentityRotation, pool.Vector3{})
		require.NoError(t, err)
	}

	require.Equal(t, 3, s.Clear())
	require.Zero(t, s.Live())
	require.Equal(t, 3, s.Pool().Idle())
	require.Zero(t, s.Pool().Stats().Leased)
}

func TestDeactivateUnleasedProjectile(t *testing.T) {
	p, err := NewProjectile()
	require.NoError(t, err)
	p.SetActive(true)
	p.Deactivate()
	require.False(t, p.IsActive())
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	_, err := New(nil, fastSettings(1), nil)
	require.Error(t, err)

	p, err := NewProjectilePool("projectile", config.PoolSettings{}, nil, nil)
	require.NoError(t, err)
	_, err = New(p, config.SpawnerSettings{SpawnsPerSecond: 0}, nil)
	require.Error(t, err)
}

func TestNewProjectilePoolRejectsNegativePrewarm(t *testing.T) {
	_, err := NewProjectilePool("projectile", config.PoolSettings{Prewarm: -1}, nil, nil)
	require.Error(t, err)
}
