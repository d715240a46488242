package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/coachpo/spawnpool/errs"
	"github.com/coachpo/spawnpool/internal/observability"
)

const (
	defaultShutdownTimeout = 5 * time.Second
	drainInitialInterval   = 5 * time.Millisecond
	drainMaxInterval       = 250 * time.Millisecond
)

var (
	// ErrPoolNotRegistered indicates the requested pool has not been registered.
	ErrPoolNotRegistered = errors.New("pool registry: pool not registered")
	// ErrRegistryClosed indicates the registry is shutting down and refuses registrations.
	ErrRegistryClosed = errors.New("pool registry: shutdown in progress")
)

// Registry is an owner-held index of named pools. It does not create pools;
// each pool is built by whoever owns it and registered here so that it can be
// looked up, reported on and drained at shutdown.
type Registry struct {
	mu     sync.RWMutex
	pools  map[string]Managed
	logger observability.Logger
	closed bool
}

// NewRegistry constructs an empty registry. A nil logger uses the global one.
func NewRegistry(logger observability.Logger) *Registry {
	if logger == nil {
		logger = observability.Log()
	}
	return &Registry{
		pools:  make(map[string]Managed),
		logger: logger,
	}
}

// Register adds p under its name.
func (r *Registry) Register(p Managed) error {
	if p == nil || p.isNil() {
		return errs.New("pool/registry", errs.CodeInvalid, errs.WithMessage("pool must not be nil"))
	}
	name := p.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errs.New("pool/registry", errs.CodeUnavailable,
			errs.WithField("pool", name),
			errs.WithCause(ErrRegistryClosed))
	}
	if _, exists := r.pools[name]; exists {
		return errs.New("pool/registry", errs.CodeConflict,
			errs.WithMessage(fmt.Sprintf("pool %s already registered", name)),
			errs.WithField("pool", name))
	}
	r.pools[name] = p
	r.logger.Debug("pool registered", observability.F("pool", name))
	return nil
}

// Lookup returns the pool registered under name.
func (r *Registry) Lookup(name string) (Managed, error) {
	r.mu.RLock()
	p, ok := r.pools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotRegistered, name)
	}
	return p, nil
}

// Snapshot returns the stats of every registered pool ordered by name.
func (r *Registry) Snapshot() []Stats {
	pools := r.list()
	out := make([]Stats, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shutdown stops accepting registrations and waits until every registered
// pool has no outstanding leases, or until ctx is done (5 seconds when ctx
// has no deadline). Outstanding leases are logged with their acquisition
// stacks when built with the debug tag.
func (r *Registry) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = drainInitialInterval
	policy.MaxInterval = drainMaxInterval

	for {
		remaining := r.outstanding()
		if remaining <= 0 {
			return nil
		}
		sleep := policy.NextBackOff()
		if sleep == backoff.Stop {
			sleep = drainMaxInterval
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			remaining = r.outstanding()
			if remaining <= 0 {
				return nil
			}
			r.logOutstanding(remaining)
			return errs.New("pool/registry", errs.CodeTimeout,
				errs.WithMessage(fmt.Sprintf("shutdown timeout: %d pooled objects unreturned", remaining)),
				errs.WithField("outstanding", strconv.FormatInt(remaining, 10)),
				errs.WithCause(ctx.Err()))
		case <-timer.C:
		}
	}
}

func (r *Registry) list() []Managed {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Managed, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	return out
}

func (r *Registry) outstanding() int64 {
	var total int64
	for _, p := range r.list() {
		if leased := p.Stats().Leased; leased > 0 {
			total += leased
		}
	}
	return total
}

func (r *Registry) logOutstanding(remaining int64) {
	r.logger.Error("pool registry shutdown timed out",
		observability.F("outstanding", remaining))
	for _, p := range r.list() {
		leased := p.Stats().Leased
		if leased <= 0 {
			continue
		}
		fields := []observability.Field{
			observability.F("pool", p.Name()),
			observability.F("leased", leased),
		}
		stacks := p.activeStacks()
		if len(stacks) == 0 {
			r.logger.Error("pool has unreturned leases", fields...)
			continue
		}
		for _, stack := range stacks {
			r.logger.Error("pool leak candidate", append(fields, observability.F("stack", stack))...)
		}
	}
}
