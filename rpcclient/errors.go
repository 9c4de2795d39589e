// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"fmt"

	"github.com/rngsource/rngclient/rngjson"
)

// Err identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type Err string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidParam indicates a request parameter failed client side
	// validation before the request was issued.
	ErrInvalidParam = Err("ErrInvalidParam")

	// ErrClientShutdown indicates the client was used after it was
	// shut down.
	ErrClientShutdown = Err("ErrClientShutdown")

	// ErrNotWebsocketClient indicates a websocket-only operation was
	// attempted on a client configured for HTTP POST mode.
	ErrNotWebsocketClient = Err("ErrNotWebsocketClient")

	// ErrStatusCode indicates an unexpected HTTP status code was returned
	// by the server in HTTP POST mode.
	ErrStatusCode = Err("ErrStatusCode")

	// ErrInvalidResult indicates the result field of an otherwise
	// successful response could not be decoded into the expected type.
	ErrInvalidResult = Err("ErrInvalidResult")
)

// Error satisfies the error interface and prints human-readable errors.
func (e Err) Error() string {
	return string(e)
}

// Error identifies an error related to the RPC client.  It has full support
// for errors.Is and errors.As, so the caller can ascertain the specific
// reason for the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind Err, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// InsufficientBitsError describes a rejected request for which the API key's
// remaining daily bit allowance was too small.  It wraps the originating
// *rngjson.RPCError and additionally reports the remaining allowance via
// AvailableUnits, which allows the prefetch package to adaptively shrink its
// bulk requests when it encounters one.
type InsufficientBitsError struct {
	// RPCError is the raw error returned by the service.
	RPCError *rngjson.RPCError

	// Bits is the remaining daily bit allowance reported by the service,
	// or -1 when the service did not report one.
	Bits int64
}

// Error satisfies the error interface and prints human-readable errors.
func (e *InsufficientBitsError) Error() string {
	if e.Bits < 0 {
		return e.RPCError.Error()
	}
	return fmt.Sprintf("%s (%d bits left)", e.RPCError.Error(), e.Bits)
}

// Unwrap returns the wrapped *rngjson.RPCError.
func (e *InsufficientBitsError) Unwrap() error {
	return e.RPCError
}

// AvailableUnits returns the remaining daily bit allowance reported by the
// service, or -1 when unknown.
func (e *InsufficientBitsError) AvailableUnits() int64 {
	return e.Bits
}

// mapRPCError converts service errors into richer client errors where
// additional structure is available.  Currently the only conversion is the
// insufficient bits error.
func mapRPCError(err error) error {
	rpcErr, ok := err.(*rngjson.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == rngjson.ErrRPCInsufficientBits {
		return &InsufficientBitsError{RPCError: rpcErr, Bits: rpcErr.BitsLeft()}
	}
	return rpcErr
}
