package errors

import (
	"errors"
	"fmt"

	"github.com/datakin/workbench/pkg/domain"
)

// Sentinels for the error taxonomy of the fixture layer.
//
// ErrMissing doubles as "access denied" on single-asset lookups on purpose:
// a caller must not be able to tell a foreign asset from a nonexistent one.
var (
	ErrMissing  = errors.New("missing")
	ErrConflict = errors.New("conflict")
	ErrDenied   = errors.New("access denied")
)

// requested record is missing (or hidden from the caller).
type Missing struct {
	Collection string
	Identity   string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Collection)
}

func (m Missing) Unwrap() error {
	return ErrMissing
}

// a write collides with an existing record, e.g. duplicated asset name.
type Conflict struct {
	Collection string
	Reason     string
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("conflict in %s: %s", c.Collection, c.Reason)
}

func (c Conflict) Unwrap() error {
	return ErrConflict
}

// explicit access denial, used where the product surfaces it as such
// (project membership). Single-asset ACL misses use Missing instead.
type Denied struct {
	Kind     domain.Kind
	Identity string
}

var _ error = Denied{}

func (d Denied) Error() string {
	return fmt.Sprintf("no access to %s %s", d.Kind, d.Identity)
}

func (d Denied) Unwrap() error {
	return ErrDenied
}
