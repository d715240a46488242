package pool

import "github.com/coachpo/spawnpool/internal/observability"

// Option configures a TypedPool.
type Option[T any] func(*settings[T])

type settings[T any] struct {
	name    string
	onPull  func(T)
	onPush  func(T)
	prewarm int
	logger  observability.Logger
	metrics *Metrics
	strict  bool
}

// WithName labels the pool in logs, errors and metrics.
func WithName[T any](name string) Option[T] {
	return func(s *settings[T]) {
		s.name = name
	}
}

// WithOnPull registers a hook invoked with every instance handed out, after
// it has been activated and bound to the pool.
func WithOnPull[T any](hook func(T)) Option[T] {
	return func(s *settings[T]) {
		s.onPull = hook
	}
}

// WithOnPush registers a hook invoked with every returned instance, before
// it is deactivated. The instance is not yet idle while the hook runs, so
// Idle read from the hook excludes it.
func WithOnPush[T any](hook func(T)) Option[T] {
	return func(s *settings[T]) {
		s.onPush = hook
	}
}

// WithPrewarm constructs n idle instances when the pool is created.
func WithPrewarm[T any](n int) Option[T] {
	return func(s *settings[T]) {
		s.prewarm = n
	}
}

// WithLogger overrides the global logger.
func WithLogger[T any](logger observability.Logger) Option[T] {
	return func(s *settings[T]) {
		s.logger = logger
	}
}

// WithMetrics records pool activity on m.
func WithMetrics[T any](m *Metrics) Option[T] {
	return func(s *settings[T]) {
		s.metrics = m
	}
}

// WithStrictLeases makes the pool track its outstanding leases and reject
// pushes of instances it did not lease.
func WithStrictLeases[T any]() Option[T] {
	return func(s *settings[T]) {
		s.strict = true
	}
}
