package pool

// Lease holds the activity flag and release callback of a poolable instance.
// Embed it and implement RequestReturn as a call to Return with the
// embedding value:
//
//	type Bullet struct {
//		pool.Lease[*Bullet]
//	}
//
//	func (b *Bullet) RequestReturn() { b.Return(b) }
//
// Lease is not safe for concurrent use; an instance has one owner at a time.
type Lease[T any] struct {
	release func(T)
	active  bool
}

// Initialize stores the release callback for the current lease.
func (l *Lease[T]) Initialize(release func(T)) {
	l.release = release
}

// SetActive flips the activity flag. Deactivating drops the release callback.
func (l *Lease[T]) SetActive(active bool) {
	l.active = active
	if !active {
		l.release = nil
	}
}

// IsActive reports whether the instance is currently leased.
func (l *Lease[T]) IsActive() bool {
	return l.active
}

// Return invokes the release callback with self at most once per lease.
func (l *Lease[T]) Return(self T) {
	release := l.release
	if release == nil {
		return
	}
	l.release = nil
	release(self)
}

// Bound reports whether a release callback is currently set.
func (l *Lease[T]) Bound() bool {
	return l.release != nil
}
