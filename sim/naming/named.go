// Package naming defines how components of the capture pipeline are named.
package naming

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name of the object.
func (b NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase. The name must be valid.
func MakeNamedBase(name string) NamedBase {
	MustBeValid(name)

	return NamedBase{name: name}
}
