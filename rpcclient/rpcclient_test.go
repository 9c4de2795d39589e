// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/rngsource/rngclient/prefetch"
	"github.com/rngsource/rngclient/rngjson"
)

// testServer wraps an httptest server that speaks the service's JSON-RPC
// protocol, dispatching each decoded request to the provided handler.  The
// handler returns either a result to marshal or an *rngjson.RPCError.
func testServer(t *testing.T, handler func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError)) (*httptest.Server, *Client) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rngjson.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("malformed request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := rngjson.Response{Jsonrpc: rngjson.RPCVersion, ID: &req.ID}
		result, rpcErr := handler(req.Method, req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			marshalled, err := json.Marshal(result)
			if err != nil {
				t.Errorf("unable to marshal result: %v", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			resp.Result = marshalled
		}
		if err := json.NewEncoder(w).Encode(&resp); err != nil {
			t.Errorf("unable to encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)

	client, err := New(&ConnectConfig{
		Host:         strings.TrimPrefix(server.URL, "http://"),
		APIKey:       "test-key",
		DisableTLS:   true,
		HTTPPostMode: true,
	})
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	t.Cleanup(client.Shutdown)
	return server, client
}

// generateEnvelope builds the shared result envelope of the value generation
// methods around the provided data.
func generateEnvelope(data interface{}, bitsUsed, advisoryDelay int64) map[string]interface{} {
	return map[string]interface{}{
		"random": map[string]interface{}{
			"data":           data,
			"completionTime": "2025-01-02 03:04:05Z",
		},
		"bitsUsed":      bitsUsed,
		"bitsLeft":      250000,
		"requestsLeft":  900,
		"advisoryDelay": advisoryDelay,
	}
}

// TestGenerateIntegers ensures a generateIntegers round trip decodes the
// returned values and that the request params carry the API key and the
// validated arguments.
func TestGenerateIntegers(t *testing.T) {
	t.Parallel()

	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		if method != rngjson.MethodGenerateIntegers {
			t.Errorf("unexpected method %q", method)
		}
		var p rngjson.GenerateIntegersParams
		if err := json.Unmarshal(params, &p); err != nil {
			t.Errorf("unable to decode params: %v", err)
		}
		if p.APIKey != "test-key" {
			t.Errorf("params carry api key %q instead of test-key",
				p.APIKey)
		}
		if p.N != 5 || p.Min != 1 || p.Max != 6 {
			t.Errorf("unexpected params: %s", spew.Sdump(p))
		}
		return generateEnvelope([]int{4, 1, 6, 6, 2}, 16, 0), nil
	})

	got, err := client.GenerateIntegers(context.Background(), 5, 1, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{4, 1, 6, 6, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if client.Requests() != 1 || client.Failures() != 0 {
		t.Fatalf("got %d requests and %d failures, want 1 and 0",
			client.Requests(), client.Failures())
	}
}

// TestGenerateBlobs ensures blobs are decoded from their base64 transport
// encoding.
func TestGenerateBlobs(t *testing.T) {
	t.Parallel()

	blob := []byte{0xde, 0xad, 0xbe, 0xef}
	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		var p rngjson.GenerateBlobsParams
		if err := json.Unmarshal(params, &p); err != nil {
			t.Errorf("unable to decode params: %v", err)
		}
		if p.Format != rngjson.BlobFormatBase64 {
			t.Errorf("unexpected blob format %q", p.Format)
		}
		encoded := base64.StdEncoding.EncodeToString(blob)
		return generateEnvelope([]string{encoded}, 32, 0), nil
	})

	got, err := client.GenerateBlobs(context.Background(), 1, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || string(got[0]) != string(blob) {
		t.Fatalf("got %x, want %x", got, blob)
	}
}

// TestParamValidation ensures out of range arguments are rejected client
// side without issuing a request.
func TestParamValidation(t *testing.T) {
	t.Parallel()

	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		t.Errorf("request for %q issued despite invalid params", method)
		return nil, &rngjson.RPCError{Code: rngjson.ErrRPCInvalidParams}
	})

	ctx := context.Background()
	tests := []struct {
		name string
		call func() error
	}{{
		name: "integers n too large",
		call: func() error {
			_, err := client.GenerateIntegers(ctx, 10001, 0, 1)
			return err
		},
	}, {
		name: "integers inverted range",
		call: func() error {
			_, err := client.GenerateIntegers(ctx, 1, 10, 5)
			return err
		},
	}, {
		name: "integers min too small",
		call: func() error {
			_, err := client.GenerateIntegers(ctx, 1, -1000000001, 0)
			return err
		},
	}, {
		name: "fractions too many places",
		call: func() error {
			_, err := client.GenerateDecimalFractions(ctx, 1, 15)
			return err
		},
	}, {
		name: "gaussians significant digits",
		call: func() error {
			_, err := client.GenerateGaussians(ctx, 1, 0, 1, 1)
			return err
		},
	}, {
		name: "strings empty charset",
		call: func() error {
			_, err := client.GenerateStrings(ctx, 1, 8, "")
			return err
		},
	}, {
		name: "blobs size not multiple of 8",
		call: func() error {
			_, err := client.GenerateBlobs(ctx, 1, 12)
			return err
		},
	}, {
		name: "tickets unknown type",
		call: func() error {
			_, err := client.ListTickets(ctx, "middle")
			return err
		},
	}}

	for _, test := range tests {
		err := test.call()
		if !errors.Is(err, ErrInvalidParam) {
			t.Errorf("%s: got error %v, want kind %v", test.name, err,
				ErrInvalidParam)
		}
	}
	if client.Requests() != 0 {
		t.Fatalf("validation issued %d requests", client.Requests())
	}
}

// TestInsufficientBitsError ensures the service's insufficient bits error is
// converted into a typed error reporting the remaining allowance in the form
// the prefetch machinery consumes.
func TestInsufficientBitsError(t *testing.T) {
	t.Parallel()

	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		return nil, &rngjson.RPCError{
			Code:    rngjson.ErrRPCInsufficientBits,
			Message: "the key has insufficient bits",
			Data:    json.RawMessage(`[1000]`),
		}
	})

	_, err := client.GenerateIntegers(context.Background(), 5, 1, 6)
	var insufficientErr *InsufficientBitsError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("got error %v, want *InsufficientBitsError", err)
	}
	if insufficientErr.AvailableUnits() != 1000 {
		t.Fatalf("got %d available bits, want 1000",
			insufficientErr.AvailableUnits())
	}
	var resourceErr prefetch.InsufficientResourceError
	if !errors.As(err, &resourceErr) {
		t.Fatalf("error does not satisfy InsufficientResourceError")
	}
	var rpcErr *rngjson.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != rngjson.ErrRPCInsufficientBits {
		t.Fatalf("wrapped error %v does not expose the rpc error", err)
	}
	if client.Failures() != 1 {
		t.Fatalf("got %d failures, want 1", client.Failures())
	}
}

// TestAdvisoryDelay ensures a reported advisory delay gates the next
// request.
func TestAdvisoryDelay(t *testing.T) {
	t.Parallel()

	const delayMillis = 75
	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		return generateEnvelope([]int{1}, 3, delayMillis), nil
	})

	ctx := context.Background()
	if _, err := client.GenerateIntegers(ctx, 1, 1, 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if _, err := client.GenerateIntegers(ctx, 1, 1, 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delayMillis*time.Millisecond/2 {
		t.Fatalf("second request sent after %v, want at least %v",
			elapsed, delayMillis*time.Millisecond)
	}

	// A canceled context must interrupt the gate rather than wait it out.
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := client.GenerateIntegers(canceled, 1, 1, 6); !errors.Is(err, context.Canceled) {
		t.Fatalf("got error %v, want %v", err, context.Canceled)
	}
}

// TestUsage ensures the usage accounting query decodes the service reply.
func TestUsage(t *testing.T) {
	t.Parallel()

	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		if method != rngjson.MethodGetUsage {
			t.Errorf("unexpected method %q", method)
		}
		return map[string]interface{}{
			"status":        "running",
			"creationTime":  "2024-06-01 00:00:00Z",
			"bitsLeft":      123456,
			"requestsLeft":  789,
			"totalBits":     250000,
			"totalRequests": 1000,
		}, nil
	})

	usage, err := client.Usage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.BitsLeft != 123456 || usage.RequestsLeft != 789 {
		t.Fatalf("unexpected usage: %s", spew.Sdump(usage))
	}
}

// TestTickets exercises the ticket bookkeeping round trips.
func TestTickets(t *testing.T) {
	t.Parallel()

	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		switch method {
		case rngjson.MethodCreateTickets:
			var p rngjson.CreateTicketsParams
			if err := json.Unmarshal(params, &p); err != nil {
				t.Errorf("unable to decode params: %v", err)
			}
			tickets := make([]rngjson.Ticket, p.N)
			for i := range tickets {
				tickets[i] = rngjson.Ticket{
					TicketID:   fmt.Sprintf("ticket-%d", i),
					ShowResult: p.ShowResult,
				}
			}
			return tickets, nil
		case rngjson.MethodGetTicket:
			var p rngjson.GetTicketParams
			if err := json.Unmarshal(params, &p); err != nil {
				t.Errorf("unable to decode params: %v", err)
			}
			return rngjson.Ticket{TicketID: p.TicketID}, nil
		default:
			t.Errorf("unexpected method %q", method)
			return nil, &rngjson.RPCError{
				Code: rngjson.ErrRPCMethodNotFound,
			}
		}
	})

	ctx := context.Background()
	tickets, err := client.CreateTickets(ctx, 3, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 3 || !tickets[0].ShowResult {
		t.Fatalf("unexpected tickets: %s", spew.Sdump(tickets))
	}

	ticket, err := client.GetTicket(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.TicketID != "ticket-1" {
		t.Fatalf("got ticket %q, want ticket-1", ticket.TicketID)
	}
}

// TestIntegerCache ensures a cache constructed by the client requests bulk
// batches, splits them into items of the requested size, and serves them in
// order.
func TestIntegerCache(t *testing.T) {
	t.Parallel()

	var next int
	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		var p rngjson.GenerateIntegersParams
		if err := json.Unmarshal(params, &p); err != nil {
			t.Errorf("unable to decode params: %v", err)
		}
		data := make([]int, p.N)
		for i := range data {
			data[i] = next
			next++
		}
		return generateEnvelope(data, int64(p.N), 0), nil
	})

	const cacheSize = 6
	const itemSize = 4
	cache, err := client.NewIntegerCache(cacheSize, itemSize, 0, 255)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cache.Stop()

	// Items must come back in generation order regardless of how the bulk
	// requests were sliced.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	want := 0
	for i := 0; i < cacheSize*2; i++ {
		item, err := cache.GetOrWait(ctx)
		if err != nil {
			t.Fatalf("item %d: unexpected error: %v", i, err)
		}
		if len(item) != itemSize {
			t.Fatalf("item %d has %d values, want %d", i, len(item),
				itemSize)
		}
		for _, v := range item {
			if v != want {
				t.Fatalf("got value %d, want %d", v, want)
			}
			want++
		}
	}
	if cache.BitsUsed() == 0 {
		t.Fatal("cache did not account any consumed bits")
	}
}

// TestReader ensures a reader constructed by the client extracts bits from
// the blobs the service returns.
func TestReader(t *testing.T) {
	t.Parallel()

	_, client := testServer(t, func(method string, params json.RawMessage) (interface{}, *rngjson.RPCError) {
		var p rngjson.GenerateBlobsParams
		if err := json.Unmarshal(params, &p); err != nil {
			t.Errorf("unable to decode params: %v", err)
		}
		blobs := make([]string, p.N)
		for i := range blobs {
			blob := make([]byte, p.Size/8)
			for j := range blob {
				blob[j] = 0xa5
			}
			blobs[i] = base64.StdEncoding.EncodeToString(blob)
		}
		return generateEnvelope(blobs, int64(p.N*p.Size), 0), nil
	})

	reader, err := client.NewReader()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 4; i++ {
		got, err := reader.Next(ctx, 8)
		if err != nil {
			t.Fatalf("extraction %d: unexpected error: %v", i, err)
		}
		if got != 0xa5 {
			t.Fatalf("extraction %d: got %#x, want 0xa5", i, got)
		}
	}
}
