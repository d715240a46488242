// Package pool contains the typed object pool and its supporting helpers.
package pool

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/coachpo/spawnpool/errs"
	"github.com/coachpo/spawnpool/internal/observability"
)

// ErrInvalidOperation marks a push the pool refused because the instance is
// not currently leased from it.
var ErrInvalidOperation = errors.New("pool: invalid operation")

// TypedPool hands out idle instances of T, most recently returned first, and
// constructs new ones when none are idle. It never blocks and never caps its
// size. All methods are safe for concurrent use; hooks and the factory run
// outside the pool's lock.
type TypedPool[T Poolable[T]] struct {
	name    string
	factory Factory[T]
	onPull  func(T)
	onPush  func(T)
	logger  observability.Logger
	metrics *Metrics
	strict  bool
	debug   *debugState

	mu          sync.Mutex
	idle        []T
	leases      map[T]struct{}
	leased      int64
	constructed uint64
	pulls       uint64
	pushes      uint64
	rejected    uint64
}

// NewTypedPool constructs a pool around factory. When WithPrewarm is given the
// requested instances are built and parked idle before NewTypedPool returns;
// prewarming does not invoke the push hook.
func NewTypedPool[T Poolable[T]](factory Factory[T], opts ...Option[T]) (*TypedPool[T], error) {
	var cfg settings[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.name == "" {
		var zero T
		cfg.name = fmt.Sprintf("%T", zero)
	}
	component := "pool/" + cfg.name
	if factory == nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("factory required"))
	}
	if cfg.prewarm < 0 {
		return nil, errs.New(component, errs.CodeInvalid,
			errs.WithMessage("prewarm count must not be negative"),
			errs.WithField("prewarm", strconv.Itoa(cfg.prewarm)))
	}
	if cfg.logger == nil {
		cfg.logger = observability.Log()
	}

	p := &TypedPool[T]{
		name:    cfg.name,
		factory: factory,
		onPull:  cfg.onPull,
		onPush:  cfg.onPush,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		strict:  cfg.strict,
		debug:   newDebugState(cfg.name),
		idle:    make([]T, 0, cfg.prewarm),
	}
	if p.strict {
		p.leases = make(map[T]struct{})
	}

	for i := 0; i < cfg.prewarm; i++ {
		obj, err := p.construct()
		if err != nil {
			return nil, fmt.Errorf("prewarm %s (%d/%d): %w", p.name, i+1, cfg.prewarm, err)
		}
		obj.SetActive(false)
		p.idle = append(p.idle, obj)
	}
	if cfg.prewarm > 0 {
		p.logger.Debug("pool prewarmed",
			observability.F("pool", p.name),
			observability.F("count", cfg.prewarm))
	}
	return p, nil
}

// Name returns the pool's label.
func (p *TypedPool[T]) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

// Pull leases an instance: the most recently pushed idle one, or a freshly
// constructed one when the pool is empty. The instance is activated and bound
// to this pool before the pull hook sees it. A factory error is returned as is
// and leaves the pool untouched.
func (p *TypedPool[T]) Pull() (T, error) {
	started := time.Now()

	p.mu.Lock()
	obj, reused := p.popLocked()
	if reused {
		p.checkoutLocked(obj)
	}
	p.mu.Unlock()

	if !reused {
		created, err := p.construct()
		if err != nil {
			var zero T
			return zero, err
		}
		obj = created
		p.mu.Lock()
		p.checkoutLocked(obj)
		p.mu.Unlock()
	}

	obj.SetActive(true)
	obj.Initialize(p.Push)
	p.debug.recordAcquire(obj)
	if p.onPull != nil {
		p.onPull(obj)
	}
	p.metrics.recordPull(p.name, started, reused)
	return obj, nil
}

// Push returns a leased instance to the pool. Pushing an instance that is not
// currently leased from this pool is a caller error: in strict mode it is
// logged and dropped, otherwise the behaviour is undefined.
func (p *TypedPool[T]) Push(obj T) {
	if err := p.TryPush(obj); err != nil {
		p.logger.Error("pool push rejected",
			observability.F("pool", p.name),
			observability.F("error", err))
	}
}

// TryPush is Push reporting a refused push as an error wrapping
// ErrInvalidOperation. The push hook runs before the instance is
// deactivated and the instance is appended to the idle stack only after
// both, so Idle does not count it while the hook runs.
func (p *TypedPool[T]) TryPush(obj T) error {
	var zero T
	if obj == zero {
		return p.reject("cannot push zero value")
	}
	if p.strict {
		p.mu.Lock()
		_, ok := p.leases[obj]
		if ok {
			delete(p.leases, obj)
		}
		p.mu.Unlock()
		if !ok {
			return p.reject("instance is not leased from this pool")
		}
	}

	if p.onPush != nil {
		p.onPush(obj)
	}
	p.debug.poison(obj)
	obj.SetActive(false)
	p.debug.recordRelease(obj)

	p.mu.Lock()
	p.idle = append(p.idle, obj)
	p.pushes++
	// an unchecked double push would otherwise drive this negative
	if p.leased > 0 {
		p.leased--
	}
	p.mu.Unlock()

	p.metrics.recordPush(p.name)
	return nil
}

// Idle returns the number of idle instances.
func (p *TypedPool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Stats returns a snapshot of the pool's counters.
func (p *TypedPool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:        p.name,
		Idle:        len(p.idle),
		Leased:      p.leased,
		Constructed: p.constructed,
		Pulls:       p.pulls,
		Pushes:      p.pushes,
		Rejected:    p.rejected,
	}
}

func (p *TypedPool[T]) popLocked() (T, bool) {
	n := len(p.idle)
	if n == 0 {
		var zero T
		return zero, false
	}
	obj := p.idle[n-1]
	var zero T
	p.idle[n-1] = zero
	p.idle = p.idle[:n-1]
	return obj, true
}

func (p *TypedPool[T]) checkoutLocked(obj T) {
	p.pulls++
	p.leased++
	if p.strict {
		p.leases[obj] = struct{}{}
	}
}

func (p *TypedPool[T]) construct() (T, error) {
	obj, err := p.factory()
	if err != nil {
		var zero T
		return zero, errs.New("pool/"+p.name, errs.CodeConstruction,
			errs.WithMessage("factory failed"),
			errs.WithCause(err))
	}
	var zero T
	if obj == zero {
		return zero, errs.New("pool/"+p.name, errs.CodeConstruction,
			errs.WithMessage("factory returned zero value"))
	}
	p.mu.Lock()
	p.constructed++
	p.mu.Unlock()
	p.metrics.recordConstruction(p.name)
	return obj, nil
}

func (p *TypedPool[T]) reject(msg string) error {
	p.mu.Lock()
	p.rejected++
	p.mu.Unlock()
	p.metrics.recordRejected(p.name)
	return errs.New("pool/"+p.name, errs.CodeInvalid,
		errs.WithMessage(msg),
		errs.WithCause(ErrInvalidOperation))
}

func (p *TypedPool[T]) isNil() bool {
	return p == nil
}

func (p *TypedPool[T]) activeStacks() []string {
	if p == nil {
		return nil
	}
	return p.debug.activeStacks()
}
