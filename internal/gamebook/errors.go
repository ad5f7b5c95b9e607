package gamebook

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrPageNotFound indicates the referenced page does not exist.
	ErrPageNotFound = eris.New("page not found")
	// ErrLinkNotFound indicates the referenced link does not exist.
	ErrLinkNotFound = eris.New("link not found")
	// ErrNoPages indicates the gamebook has no pages to start from.
	ErrNoPages = eris.New("no gamebook pages available")
	// ErrStaleCache indicates a cache position was captured from an outdated snapshot.
	ErrStaleCache = eris.New("cache snapshot is stale")
	// ErrIndexOutOfRange indicates a cache position outside the snapshot.
	ErrIndexOutOfRange = eris.New("cache index out of range")
	// ErrDrafterUnavailable indicates no LLM drafter is configured.
	ErrDrafterUnavailable = eris.New("page drafter is not configured")
)

// StorageError reports a failed database round-trip.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %q failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// InvalidTargetError rejects a link target that is not the numeric id of an existing page.
type InvalidTargetError struct {
	// Input is the offending value as supplied by the caller.
	Input  string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid link target %q: %s", e.Input, e.Reason)
}
