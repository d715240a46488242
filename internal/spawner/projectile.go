package spawner

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/coachpo/spawnpool/config"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/internal/pool"
)

// Projectile is a pooled, placeable simulation object.
type Projectile struct {
	pool.Lease[*Projectile]

	ID       uuid.UUID
	Position pool.Vector3
	Rotation pool.Rotation
	Velocity pool.Vector3

	ticksLeft int
}

// NewProjectile builds an idle projectile with a fresh identifier.
func NewProjectile() (*Projectile, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("projectile id: %w", err)
	}
	return &Projectile{ID: id, Rotation: pool.IdentityRotation}, nil
}

// RequestReturn hands the projectile back to the pool that leased it.
func (p *Projectile) RequestReturn() { p.Return(p) }

// SetPosition places the projectile.
func (p *Projectile) SetPosition(position pool.Vector3) { p.Position = position }

// SetRotation orients the projectile.
func (p *Projectile) SetRotation(rotation pool.Rotation) { p.Rotation = rotation }

// Deactivate is the host's deactivation signal. A leased projectile returns
// itself to its pool; an unleased one is simply marked inactive.
func (p *Projectile) Deactivate() {
	if !p.Bound() {
		p.SetActive(false)
		return
	}
	p.RequestReturn()
}

// TicksLeft reports how many ticks remain before the projectile expires.
func (p *Projectile) TicksLeft() int { return p.ticksLeft }

// NewProjectilePool builds the pool backing a spawner. Pulled projectiles come
// out at rest; returned ones lose their remaining lifetime.
func NewProjectilePool(name string, settings config.PoolSettings, logger observability.Logger, metrics *pool.Metrics) (*pool.TypedPool[*Projectile], error) {
	opts := []pool.Option[*Projectile]{
		pool.WithName[*Projectile](name),
		pool.WithPrewarm[*Projectile](settings.Prewarm),
		pool.WithLogger[*Projectile](logger),
		pool.WithMetrics[*Projectile](metrics),
		pool.WithOnPull(func(p *Projectile) {
			p.Velocity = pool.Vector3{}
			p.Rotation = pool.IdentityRotation
		}),
		pool.WithOnPush(func(p *Projectile) {
			p.ticksLeft = 0
		}),
	}
	if settings.Strict {
		opts = append(opts, pool.WithStrictLeases[*Projectile]())
	}
	p, err := pool.NewTypedPool[*Projectile](NewProjectile, opts...)
	if err != nil {
		return nil, fmt.Errorf("projectile pool %s: %w", name, err)
	}
	metrics.Observe(p)
	return p, nil
}
