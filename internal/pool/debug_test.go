//go:build debug

package pool

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/coachpo/spawnpool/internal/observability"
)

type shooter struct {
	Name  string
	Score int
}

type bolt struct {
	Lease[*bolt]
	Label   string
	Damage  int
	Hits    uint32
	Speed   float64
	Tags    []string
	Seen    map[string]int
	Offset  Vector3
	Shooter *shooter
	Next    *bolt
	serial  int
}

func (b *bolt) RequestReturn() { b.Return(b) }

func newBoltPool(t *testing.T) *TypedPool[*bolt] {
	t.Helper()
	p, err := NewTypedPool[*bolt](func() (*bolt, error) { return &bolt{}, nil })
	require.NoError(t, err)
	return p
}

func TestReturnedInstanceIsPoisoned(t *testing.T) {
	p := newBoltPool(t)

	b, err := p.Pull()
	require.NoError(t, err)
	b.Label = "plasma"
	b.Damage = 12
	b.Hits = 2
	b.Speed = 40
	b.Tags = []string{"piercing"}
	b.Seen = map[string]int{"drone": 1}
	b.Offset = Vector3{X: 1, Y: 2, Z: 3}
	b.serial = 9

	b.RequestReturn()

	require.False(t, b.IsActive())
	require.Equal(t, poisonString, b.Label)
	require.Equal(t, -1, b.Damage)
	require.Equal(t, uint32(math.MaxUint32), b.Hits)
	require.True(t, math.IsNaN(b.Speed))
	require.NotNil(t, b.Tags)
	require.Empty(t, b.Tags)
	require.Empty(t, b.Seen)
	require.True(t, math.IsNaN(b.Offset.X))
	require.True(t, math.IsNaN(b.Offset.Z))
	require.Equal(t, 9, b.serial)
	require.Equal(t, 1, p.Idle())
}

func TestPoisonLeavesReferencedObjectsAlone(t *testing.T) {
	p := newBoltPool(t)
	owner := &shooter{Name: "turret", Score: 7}

	a, err := p.Pull()
	require.NoError(t, err)
	b, err := p.Pull()
	require.NoError(t, err)
	a.Shooter = owner
	b.Shooter = owner
	a.Next = a
	b.Next = a

	require.NotPanics(t, a.RequestReturn)
	require.NotPanics(t, b.RequestReturn)

	require.Equal(t, shooter{Name: "turret", Score: 7}, *owner)
	require.Same(t, owner, a.Shooter)
	require.Same(t, a, a.Next)
	require.Same(t, a, b.Next)
	require.Equal(t, 2, p.Idle())
}

func TestActiveStacksFollowLeases(t *testing.T) {
	p := newBoltPool(t)

	b, err := p.Pull()
	require.NoError(t, err)
	stacks := p.activeStacks()
	require.Len(t, stacks, 1)
	require.Contains(t, stacks[0], "TestActiveStacksFollowLeases")

	b.RequestReturn()
	require.Empty(t, p.activeStacks())
}

func leakToken(t *testing.T, p *TypedPool[*token]) {
	t.Helper()
	_, err := p.Pull()
	require.NoError(t, err)
}

func TestShutdownTimeoutLogsLeakedLeaseStack(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := NewRegistry(observability.NewZapLogger(zap.New(core)))
	p := newTokenPool(t, &tokenFactory{}, WithName[*token]("leaky"))
	require.NoError(t, r.Register(p))

	leakToken(t, p)
	returned, err := p.Pull()
	require.NoError(t, err)
	returned.RequestReturn()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.Error(t, r.Shutdown(ctx))

	entries := logs.FilterMessage("pool leak candidate").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "leaky", fields["pool"])
	stack, ok := fields["stack"].(string)
	require.True(t, ok)
	require.Contains(t, stack, "leakToken")
}
