// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rngjson

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestMarshalRequest ensures requests are marshalled into the expected
// JSON-RPC envelope and that invalid inputs produce the expected error
// kinds.
func TestMarshalRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		id     uint64
		method string
		params interface{}
		want   string
		err    error
	}{{
		name:   "getUsage",
		id:     1,
		method: MethodGetUsage,
		params: &GetUsageParams{APIKey: "key"},
		want: `{"jsonrpc":"2.0","method":"getUsage","params":` +
			`{"apiKey":"key"},"id":1}`,
	}, {
		name:   "generateIntegers",
		id:     7,
		method: MethodGenerateIntegers,
		params: &GenerateIntegersParams{
			APIKey:      "key",
			N:           5,
			Min:         1,
			Max:         6,
			Replacement: true,
			Base:        10,
		},
		want: `{"jsonrpc":"2.0","method":"generateIntegers","params":` +
			`{"apiKey":"key","n":5,"min":1,"max":6,"replacement":true,` +
			`"base":10},"id":7}`,
	}, {
		name:   "empty method",
		id:     1,
		method: "",
		params: &GetUsageParams{},
		err:    ErrEmptyMethod,
	}, {
		name:   "unmarshallable params",
		id:     1,
		method: MethodGetUsage,
		params: make(chan int),
		err:    ErrInvalidType,
	}}

	for _, test := range tests {
		marshalled, err := MarshalRequest(test.id, test.method, test.params)
		if !errors.Is(err, test.err) {
			t.Errorf("%s: got error %v, want %v", test.name, err,
				test.err)
			continue
		}
		if err != nil {
			continue
		}
		if string(marshalled) != test.want {
			t.Errorf("%s: got %s, want %s", test.name, marshalled,
				test.want)
		}
	}
}

// TestParseResponse ensures raw results are extracted from well-formed
// responses and that service errors and malformed envelopes produce the
// expected errors.
func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		serialized string
		id         uint64
		want       string
		err        error
	}{{
		name:       "valid result",
		serialized: `{"jsonrpc":"2.0","result":{"status":"running"},"id":3}`,
		id:         3,
		want:       `{"status":"running"}`,
	}, {
		name:       "service error",
		serialized: `{"jsonrpc":"2.0","error":{"code":401,"message":"invalid key"},"id":3}`,
		id:         3,
		err:        &RPCError{Code: ErrRPCInvalidAPIKey},
	}, {
		name:       "mismatched id",
		serialized: `{"jsonrpc":"2.0","result":true,"id":4}`,
		id:         3,
		err:        ErrMismatchedID,
	}, {
		name:       "missing id",
		serialized: `{"jsonrpc":"2.0","result":true}`,
		id:         3,
		err:        ErrMismatchedID,
	}, {
		name:       "no result or error",
		serialized: `{"jsonrpc":"2.0","id":3}`,
		id:         3,
		err:        ErrMissingResult,
	}, {
		name:       "malformed json",
		serialized: `{"jsonrpc":`,
		id:         3,
		err:        ErrInvalidResponse,
	}}

	for _, test := range tests {
		result, err := ParseResponse([]byte(test.serialized), test.id)
		var rpcErr *RPCError
		switch {
		case errors.As(test.err, &rpcErr):
			var gotErr *RPCError
			if !errors.As(err, &gotErr) || gotErr.Code != rpcErr.Code {
				t.Errorf("%s: got error %v, want rpc error code %d",
					test.name, err, rpcErr.Code)
			}
			continue
		case !errors.Is(err, test.err):
			t.Errorf("%s: got error %v, want %v", test.name, err,
				test.err)
			continue
		case err != nil:
			continue
		}
		if string(result) != test.want {
			t.Errorf("%s: got result %s, want %s", test.name, result,
				test.want)
		}
	}
}

// TestRPCErrorBitsLeft ensures the insufficient bits payload is interpreted
// per the service convention with -1 reported for every unusable shape.
func TestRPCErrorBitsLeft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  RPCError
		want int64
	}{{
		name: "reported allowance",
		err: RPCError{
			Code: ErrRPCInsufficientBits,
			Data: json.RawMessage(`[1000]`),
		},
		want: 1000,
	}, {
		name: "zero allowance",
		err: RPCError{
			Code: ErrRPCInsufficientBits,
			Data: json.RawMessage(`[0]`),
		},
		want: 0,
	}, {
		name: "no data",
		err:  RPCError{Code: ErrRPCInsufficientBits},
		want: -1,
	}, {
		name: "empty array",
		err: RPCError{
			Code: ErrRPCInsufficientBits,
			Data: json.RawMessage(`[]`),
		},
		want: -1,
	}, {
		name: "non-array data",
		err: RPCError{
			Code: ErrRPCInsufficientBits,
			Data: json.RawMessage(`"soon"`),
		},
		want: -1,
	}, {
		name: "wrong code",
		err: RPCError{
			Code: ErrRPCParamOutOfRange,
			Data: json.RawMessage(`[1000]`),
		},
		want: -1,
	}}

	for _, test := range tests {
		if got := test.err.BitsLeft(); got != test.want {
			t.Errorf("%s: got %d, want %d", test.name, got, test.want)
		}
	}
}
