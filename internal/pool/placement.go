package pool

// Vector3 is a position in world space.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v+o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Rotation is an orientation quaternion.
type Rotation struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// IdentityRotation is the zero orientation.
var IdentityRotation = Rotation{W: 1}

// PullAt pulls an instance and places it at position.
func PullAt[T interface {
	Poolable[T]
	Placeable
}](p *TypedPool[T], position Vector3) (T, error) {
	obj, err := p.Pull()
	if err != nil {
		return obj, err
	}
	obj.SetPosition(position)
	return obj, nil
}

// PullAtRotated pulls an instance and places it at position with rotation.
func PullAtRotated[T interface {
	Poolable[T]
	Placeable
}](p *TypedPool[T], position Vector3, rotation Rotation) (T, error) {
	obj, err := PullAt(p, position)
	if err != nil {
		return obj, err
	}
	obj.SetRotation(rotation)
	return obj, nil
}
