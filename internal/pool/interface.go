package pool

// Poolable is the capability set a type must satisfy to be managed by a
// TypedPool. Implementations are normally pointers; identity is pointer
// identity.
//
// Initialize stores the release callback for the current lease, replacing any
// previous one. RequestReturn invokes that callback with the instance itself
// and is a no-op when no callback is set. SetActive(false) must drop the
// callback so a returned instance cannot be returned twice through it.
type Poolable[T any] interface {
	comparable
	Initialize(release func(T))
	RequestReturn()
	SetActive(active bool)
	IsActive() bool
}

// Placeable is implemented by poolables that carry a spatial placement.
type Placeable interface {
	SetPosition(position Vector3)
	SetRotation(rotation Rotation)
}

// Factory constructs a new instance for a pool.
type Factory[T any] func() (T, error)

// Managed is the type-erased view of a pool used by the registry and metrics.
type Managed interface {
	Name() string
	Idle() int
	Stats() Stats
	isNil() bool
	activeStacks() []string
}

// Stats is a point-in-time snapshot of a pool's counters.
type Stats struct {
	Name        string `json:"name"`
	Idle        int    `json:"idle"`
	Leased      int64  `json:"leased"` // never negative, even after unchecked double pushes
	Constructed uint64 `json:"constructed"`
	Pulls       uint64 `json:"pulls"`
	Pushes      uint64 `json:"pushes"`
	Rejected    uint64 `json:"rejected"`
}
