package tree

import "errors"

var (
	// ErrEmptyTree is returned by FirstItem/LastItem on a tree with no
	// entries.
	ErrEmptyTree = errors.New("tree: tree is empty")
	// ErrClosed is returned by any operation on a tree that has already
	// been closed.
	ErrClosed = errors.New("tree: index is closed")
	// ErrCorrupt flags a page that failed to decode into a well-formed
	// bucket.
	ErrCorrupt = errors.New("tree: corrupt page")
	// ErrMaxDepthExceeded is returned when a descent would exceed the
	// tree's configured MaxDepth, guarding against runaway growth from a
	// pathological key distribution.
	ErrMaxDepthExceeded = errors.New("tree: exceeded configured max depth")
	// ErrNullKeyDisallowed is returned when a nil key is passed to
	// Put/Get/Remove but the tree was configured without null key support.
	ErrNullKeyDisallowed = errors.New("tree: null keys are not supported by this tree")
)
