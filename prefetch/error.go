// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prefetch

// Err identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type Err string

// Error satisfies the error interface and prints human-readable errors.
func (e Err) Error() string { return string(e) }

// Error identifies a cache error.  It has full support for errors.Is and
// errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.
type Error struct {
	Description string
	Err         error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string { return e.Description }

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error { return e.Err }

// makeError creates an Error given a set of arguments.
func makeError(kind Err, desc string) Error {
	return Error{Err: kind, Description: desc}
}

var (
	// ErrEmpty indicates a non-blocking retrieval found no queued item.
	// This is a defined no-data condition rather than a cache failure, and
	// callers are expected to handle it, for example by falling back to a
	// pseudo-random source.
	ErrEmpty = Err("ErrEmpty")

	// ErrInterrupted indicates a blocking retrieval was interrupted by
	// cancellation of the caller-supplied context before an item became
	// available.
	ErrInterrupted = Err("ErrInterrupted")

	// ErrFetchNil indicates a cache was configured without a fetch
	// function.
	ErrFetchNil = Err("ErrFetchNil")

	// ErrResizeNil indicates a bulk-mode cache was configured without a
	// resize function for its request descriptor.
	ErrResizeNil = Err("ErrResizeNil")

	// ErrBadCacheSize indicates the configured cache size is not a
	// positive item count or does not leave room for a bulk response.
	ErrBadCacheSize = Err("ErrBadCacheSize")

	// ErrBadItemSize indicates the configured per-item value count is not
	// positive.
	ErrBadItemSize = Err("ErrBadItemSize")
)

// InsufficientResourceError describes an error returned by a fetch function
// to report that the upstream resource allowance cannot satisfy the current
// request size.  AvailableUnits reports how much of the resource remains, or
// -1 when the amount is unknown.  Fetch errors implementing this interface
// drive the adaptive bulk shrinking of the refill loop; any other fetch
// error is treated as transient.
type InsufficientResourceError interface {
	error
	AvailableUnits() int64
}
