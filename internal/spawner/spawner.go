// Package spawner drives a typed pool the way a game spawner does: it pulls
// projectiles at a placement, ages them every tick and deactivates the ones
// that expire so they return to the pool on their own.
package spawner

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/coachpo/spawnpool/config"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/internal/pool"
)

// ErrThrottled is returned by Spawn when the spawn rate limit is exhausted.
var ErrThrottled = errors.New("spawner: spawn rate exceeded")

// Spawner owns one projectile pool and the projectiles currently in flight.
type Spawner struct {
	pool     *pool.TypedPool[*Projectile]
	limiter  *rate.Limiter
	lifetime int
	logger   observability.Logger

	mu   sync.Mutex
	live []*Projectile
}

// New constructs a spawner over p.
func New(p *pool.TypedPool[*Projectile], settings config.SpawnerSettings, logger observability.Logger) (*Spawner, error) {
	if p == nil {
		return nil, fmt.Errorf("spawner: pool required")
	}
	if settings.SpawnsPerSecond <= 0 {
		return nil, fmt.Errorf("spawner: spawnsPerSecond must be positive")
	}
	if logger == nil {
		logger = observability.Log()
	}
	lifetime := settings.LifetimeTicks
	if lifetime <= 0 {
		lifetime = 1
	}
	burst := settings.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Spawner{
		pool:     p,
		limiter:  rate.NewLimiter(rate.Limit(settings.SpawnsPerSecond), burst),
		lifetime: lifetime,
		logger:   logger,
	}, nil
}

// Pool returns the spawner's pool.
func (s *Spawner) Pool() *pool.TypedPool[*Projectile] {
	return s.pool
}

// Spawn launches a projectile at position with the given orientation and velocity.
func (s *Spawner) Spawn(position pool.Vector3, rotation pool.Rotation, velocity pool.Vector3) (*Projectile, error) {
	if !s.limiter.Allow() {
		return nil, ErrThrottled
	}
	p, err := pool.PullAtRotated(s.pool, position, rotation)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", s.pool.Name(), err)
	}
	p.Velocity = velocity
	p.ticksLeft = s.lifetime

	s.mu.Lock()
	s.live = append(s.live, p)
	s.mu.Unlock()
	return p, nil
}

// Tick moves every live projectile one step and deactivates the expired ones.
// It returns the number of projectiles that expired.
func (s *Spawner) Tick() int {
	s.mu.Lock()
	var expired []*Projectile
	kept := s.live[:0]
	for _, p := range s.live {
		p.Position = p.Position.Add(p.Velocity)
		p.ticksLeft--
		if p.ticksLeft <= 0 {
			expired = append(expired, p)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(s.live); i++ {
		s.live[i] = nil
	}
	s.live = kept
	s.mu.Unlock()

	for _, p := range expired {
		p.Deactivate()
	}
	if len(expired) > 0 {
		s.logger.Debug("projectiles expired",
			observability.F("pool", s.pool.Name()),
			observability.F("count", len(expired)))
	}
	return len(expired)
}

// Live returns the number of projectiles in flight.
func (s *Spawner) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Clear deactivates every projectile in flight.
func (s *Spawner) Clear() int {
	s.mu.Lock()
	live := s.live
	s.live = nil
	s.mu.Unlock()

	for _, p := range live {
		p.Deactivate()
	}
	return len(live)
}
