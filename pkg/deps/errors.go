package deps

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// ErrEmptyInput is returned when discovery is requested for no objects.
var ErrEmptyInput = errors.New("no objects were specified for dependency discovery")

// PropertyNotSetError is returned when a required walker property is missing.
type PropertyNotSetError struct {
	Property string
}

func (e *PropertyNotSetError) Error() string {
	return fmt.Sprintf("property %s is not set", e.Property)
}

// MissingDependencyError is returned when a requested object is absent from
// the discovery result and is not a system object.
type MissingDependencyError struct {
	Urn urn.Urn
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency information for %s", e.Urn)
}

// UrnResolutionError is returned when a requested urn cannot be resolved to
// a live object.
type UrnResolutionError struct {
	Urn urn.Urn
	Err error
}

func (e *UrnResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s: %v", e.Urn, e.Err)
}

func (e *UrnResolutionError) Unwrap() error {
	return e.Err
}

// MismatchingServerError is returned when a urn addresses a different server
// than the one the walker is connected to.
type MismatchingServerError struct {
	Urn      urn.Urn
	Expected string
	Actual   string
}

func (e *MismatchingServerError) Error() string {
	return fmt.Sprintf("mismatching server name in %s: expected %q, got %q", e.Urn, e.Expected, e.Actual)
}

// FailedOperationError wraps a failure of the remote dependency service.
type FailedOperationError struct {
	Op  string
	Err error
}

func (e *FailedOperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *FailedOperationError) Unwrap() error {
	return e.Err
}
