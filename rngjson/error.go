// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rngjson

import (
	"encoding/json"
	"fmt"
)

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.  These error kinds are NOT used for
// errors returned by the service inside a JSON-RPC response -- see RPCError
// for those.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidType indicates a parameter value has a type that cannot be
	// marshalled into a JSON-RPC request.
	ErrInvalidType = ErrorKind("ErrInvalidType")

	// ErrEmptyMethod indicates a request was created with an empty method
	// name.
	ErrEmptyMethod = ErrorKind("ErrEmptyMethod")

	// ErrInvalidResponse indicates a response from the service could not
	// be parsed as a JSON-RPC response envelope.
	ErrInvalidResponse = ErrorKind("ErrInvalidResponse")

	// ErrMismatchedID indicates the id of a response does not match the id
	// of the request it is presumed to answer.
	ErrMismatchedID = ErrorKind("ErrMismatchedID")

	// ErrMissingResult indicates a response envelope carried neither a
	// result nor an error object.
	ErrMissingResult = ErrorKind("ErrMissingResult")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to marshalling or parsing rngsource
// JSON-RPC requests and responses.  It has full support for errors.Is and
// errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.
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
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// RPCErrorCode represents an error code returned by the service as a part of
// an RPCError.
//
// A specific type is used to help ensure the wrong errors aren't used.
type RPCErrorCode int

// Service error codes.  Codes in the -32768..-32000 range are standard
// JSON-RPC 2.0 protocol errors while the positive codes are specific to the
// rngsource API.
const (
	// ErrRPCParse indicates the service could not parse the request JSON.
	ErrRPCParse RPCErrorCode = -32700

	// ErrRPCInvalidRequest indicates the request envelope was not a valid
	// JSON-RPC request object.
	ErrRPCInvalidRequest RPCErrorCode = -32600

	// ErrRPCMethodNotFound indicates the requested method does not exist.
	ErrRPCMethodNotFound RPCErrorCode = -32601

	// ErrRPCInvalidParams indicates one or more method parameters were
	// structurally invalid.
	ErrRPCInvalidParams RPCErrorCode = -32602

	// ErrRPCInternal indicates an internal service failure.
	ErrRPCInternal RPCErrorCode = -32603

	// ErrRPCParamOutOfRange indicates a parameter value is outside the
	// range the service accepts for the invoked method.
	ErrRPCParamOutOfRange RPCErrorCode = 200

	// ErrRPCInvalidAPIKey indicates the API key does not exist or has been
	// deactivated.
	ErrRPCInvalidAPIKey RPCErrorCode = 401

	// ErrRPCKeyStopped indicates the API key exists but is not currently
	// running.
	ErrRPCKeyStopped RPCErrorCode = 402

	// ErrRPCInsufficientBits indicates the request requires more bits than
	// the key's remaining daily allowance.  The data field of the error
	// carries the number of bits still available, or -1 when the service
	// did not report it.
	ErrRPCInsufficientBits RPCErrorCode = 403

	// ErrRPCInsufficientRequests indicates the key's daily request
	// allowance has been exhausted.
	ErrRPCInsufficientRequests RPCErrorCode = 404

	// ErrRPCAdvisoryDelay indicates a request was issued before the
	// advisory delay of the previous response elapsed.
	ErrRPCAdvisoryDelay RPCErrorCode = 420

	// ErrRPCTicketUnknown indicates the referenced ticket does not exist.
	ErrRPCTicketUnknown RPCErrorCode = 430

	// ErrRPCTicketUsed indicates the referenced ticket has already been
	// consumed by a previous request.
	ErrRPCTicketUsed RPCErrorCode = 431
)

// RPCError represents an error returned by the service as part of a JSON-RPC
// response envelope.  The shape of the data field depends on the code, so it
// is left as a raw message for the caller to interpret.  See BitsLeft for
// the ErrRPCInsufficientBits payload.
type RPCError struct {
	Code    RPCErrorCode    `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// BitsLeft interprets the data payload of an ErrRPCInsufficientBits error
// and returns the number of bits the service reported as still available.
// It returns -1 when the error carries no usable report, which callers must
// treat as an unknown amount.
func (e RPCError) BitsLeft() int64 {
	if e.Code != ErrRPCInsufficientBits || len(e.Data) == 0 {
		return -1
	}

	// The service reports the remaining allowance as the first element of
	// the data array.
	var data []int64
	if err := json.Unmarshal(e.Data, &data); err != nil || len(data) == 0 {
		return -1
	}
	return data[0]
}

// Guarantee RPCError satisfies the builtin error interface.
var _, _ error = RPCError{}, (*RPCError)(nil)

// Error returns a string describing the RPC error.  This satisfies the
// builtin error interface.
func (e RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewRPCError constructs and returns a new JSON-RPC error that is suitable
// for use in a JSON-RPC response object.
func NewRPCError(code RPCErrorCode, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}
