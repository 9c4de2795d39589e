// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rngjson

import (
	"encoding/json"
	"fmt"
)

// RPCVersion is the JSON-RPC protocol version spoken by the rngsource
// service.
const RPCVersion = "2.0"

// Request represents raw JSON-RPC requests.  The Method field identifies the
// specific command type which in turn leads to different parameters.
// Callers typically will not use this directly since this package provides
// statically typed parameter structs which handle creation of these
// requests, however this struct is being exported in case the caller wants
// to construct raw requests for some reason.
type Request struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      uint64          `json:"id"`
}

// MarshalRequest marshals the provided method and params struct into a
// JSON-RPC request byte slice that is suitable for transmission to the
// service.  The params must marshal into a JSON object per the object-style
// params the service expects.
func MarshalRequest(id uint64, method string, params interface{}) ([]byte, error) {
	if method == "" {
		return nil, makeError(ErrEmptyMethod, "no method specified")
	}

	marshalledParams, err := json.Marshal(params)
	if err != nil {
		str := fmt.Sprintf("failed to marshal params for method %q: %v",
			method, err)
		return nil, makeError(ErrInvalidType, str)
	}

	req := Request{
		Jsonrpc: RPCVersion,
		Method:  method,
		Params:  marshalledParams,
		ID:      id,
	}
	return json.Marshal(&req)
}

// Response is the general form of a JSON-RPC response.  The type of the
// Result field varies from one method to the next, so it is left as a raw
// message to be unmarshalled by the caller.  The ID field is a pointer to
// allow for a nil value when the response could not be associated with a
// request.
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      *uint64         `json:"id"`
}

// ParseResponse parses the serialized response from the service, ensures it
// answers the request with the provided id, and returns the raw result.  An
// error returned by the service is returned as an *RPCError so the caller
// can interpret the code, while malformed envelopes produce an Error with a
// kind describing the failure.
func ParseResponse(serialized []byte, id uint64) (json.RawMessage, error) {
	var resp Response
	if err := json.Unmarshal(serialized, &resp); err != nil {
		str := fmt.Sprintf("malformed response from service: %v", err)
		return nil, makeError(ErrInvalidResponse, str)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.ID == nil || *resp.ID != id {
		str := fmt.Sprintf("response id does not match request id %d", id)
		return nil, makeError(ErrMismatchedID, str)
	}
	if len(resp.Result) == 0 {
		return nil, makeError(ErrMissingResult,
			"response carries neither a result nor an error")
	}
	return resp.Result, nil
}
