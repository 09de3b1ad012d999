package core

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// ErrNotFound is wrapped by Server.GetObject when a urn does not resolve.
var ErrNotFound = errors.New("object not found")

// ErrUnsupportedVersion is returned for objects that cannot exist on the
// target server version or edition.
var ErrUnsupportedVersion = errors.New("object not supported on target server")

// UnsupportedObjectTypeError is returned by dependency services asked about
// objects whose kind is not tracked for dependency discovery.
type UnsupportedObjectTypeError struct {
	Urn  urn.Urn
	Kind ObjectKind
}

func (e *UnsupportedObjectTypeError) Error() string {
	return fmt.Sprintf("dependency discovery is not supported for %s objects: %s", e.Kind, e.Urn)
}
