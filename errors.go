package fetch

import (
	"errors"
	"fmt"
)

// errStalled reports a description that is neither reduced nor holds any
// dispatchable request. Well-formed descriptions cannot reach this state.
var errStalled = errors.New("fetch: unresolved description has no dispatchable requests")

// MissingIdentityError marks an identity a batch response omitted. It is
// cached like a result, so re-requesting the identity within the same run (or
// a run sharing the cache) fails without another source call.
type MissingIdentityError struct {
	Source string
	ID     any
}

func (e *MissingIdentityError) Error() string {
	return fmt.Sprintf("fetch: source %q returned no result for identity %v", e.Source, e.ID)
}

// SourceError wraps a failure of a data-source call itself. Unlike a missing
// identity it is not cached: nothing was learned about any identity.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch: source %q failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
