package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "spawnpool/pool"

// Metrics records pool activity as OpenTelemetry instruments. A nil *Metrics
// records nothing.
type Metrics struct {
	pulls         metric.Int64Counter
	pushes        metric.Int64Counter
	constructions metric.Int64Counter
	rejected      metric.Int64Counter
	borrow        metric.Float64Histogram

	mu       sync.RWMutex
	observed []Managed
}

// NewMetrics creates the pool instruments on meter, falling back to the
// global meter provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	m := new(Metrics)
	var err error
	if m.pulls, err = meter.Int64Counter("pool.pulls",
		metric.WithDescription("Instances handed out"),
		metric.WithUnit("{instance}")); err != nil {
		return nil, fmt.Errorf("create pool.pulls: %w", err)
	}
	if m.pushes, err = meter.Int64Counter("pool.pushes",
		metric.WithDescription("Instances returned"),
		metric.WithUnit("{instance}")); err != nil {
		return nil, fmt.Errorf("create pool.pushes: %w", err)
	}
	if m.constructions, err = meter.Int64Counter("pool.constructions",
		metric.WithDescription("Instances built by the factory"),
		metric.WithUnit("{instance}")); err != nil {
		return nil, fmt.Errorf("create pool.constructions: %w", err)
	}
	if m.rejected, err = meter.Int64Counter("pool.push.rejected",
		metric.WithDescription("Pushes refused because the instance was not leased"),
		metric.WithUnit("{instance}")); err != nil {
		return nil, fmt.Errorf("create pool.push.rejected: %w", err)
	}
	if m.borrow, err = meter.Float64Histogram("pool.borrow.duration",
		metric.WithDescription("Pool borrow operation duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("create pool.borrow.duration: %w", err)
	}
	if _, err = meter.Int64ObservableGauge("pool.idle",
		metric.WithDescription("Idle instances ready to be pulled"),
		metric.WithUnit("{instance}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			for _, p := range m.snapshot() {
				observer.Observe(int64(p.Idle()), metric.WithAttributes(poolAttr(p.Name())))
			}
			return nil
		})); err != nil {
		return nil, fmt.Errorf("create pool.idle: %w", err)
	}
	if _, err = meter.Int64ObservableGauge("pool.leased",
		metric.WithDescription("Instances currently leased to callers"),
		metric.WithUnit("{instance}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			for _, p := range m.snapshot() {
				observer.Observe(p.Stats().Leased, metric.WithAttributes(poolAttr(p.Name())))
			}
			return nil
		})); err != nil {
		return nil, fmt.Errorf("create pool.leased: %w", err)
	}
	return m, nil
}

// Observe adds p to the pools reported by the idle and leased gauges.
func (m *Metrics) Observe(p Managed) {
	if m == nil || p == nil || p.isNil() {
		return
	}
	m.mu.Lock()
	m.observed = append(m.observed, p)
	m.mu.Unlock()
}

func (m *Metrics) snapshot() []Managed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Managed, len(m.observed))
	copy(out, m.observed)
	return out
}

func (m *Metrics) recordPull(name string, started time.Time, reused bool) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.pulls.Add(ctx, 1, metric.WithAttributes(poolAttr(name), attribute.Bool("reused", reused)))
	elapsed := float64(time.Since(started)) / float64(time.Millisecond)
	m.borrow.Record(ctx, elapsed, metric.WithAttributes(poolAttr(name)))
}

func (m *Metrics) recordPush(name string) {
	if m == nil {
		return
	}
	m.pushes.Add(context.Background(), 1, metric.WithAttributes(poolAttr(name)))
}

func (m *Metrics) recordConstruction(name string) {
	if m == nil {
		return
	}
	m.constructions.Add(context.Background(), 1, metric.WithAttributes(poolAttr(name)))
}

func (m *Metrics) recordRejected(name string) {
	if m == nil {
		return
	}
	m.rejected.Add(context.Background(), 1, metric.WithAttributes(poolAttr(name)))
}

func poolAttr(name string) attribute.KeyValue {
	return attribute.String("pool", name)
}
