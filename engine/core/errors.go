package core

import "errors"

var (
	// ErrNotFound names a lookup miss for a name or node id. The
	// registries and the render tree do not return it: they report a miss
	// with a false ok value or an error of their own.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when adding an entry that already exists
	// under a unique key; Manifest.Add returns it for a repeated element
	// name.
	ErrDuplicate = errors.New("duplicate")
	ErrUnknown   = errors.New("unknown")
)
