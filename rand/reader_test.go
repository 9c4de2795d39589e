// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rand

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rngsource/rngclient/prefetch"
)

// testReader returns a reader whose cache endlessly cycles through the
// provided blobs, one blob per fetch.
func testReader(t *testing.T, blobs ...[]byte) *Reader {
	t.Helper()

	var mtx sync.Mutex
	idx := 0
	fetch := func() (prefetch.Result[[]byte], error) {
		mtx.Lock()
		defer mtx.Unlock()
		blob := append([]byte(nil), blobs[idx%len(blobs)]...)
		idx++
		res := prefetch.Result[[]byte]{
			Data:     [][]byte{blob},
			BitsUsed: int64(len(blob) * 8),
		}
		return res, nil
	}
	cache, err := prefetch.New(prefetch.Config[[]byte]{
		Fetch:     fetch,
		ItemSize:  1,
		CacheSize: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error creating cache: %v", err)
	}
	r, err := NewReader(Config{Cache: cache})
	if err != nil {
		t.Fatalf("unexpected error creating reader: %v", err)
	}
	return r
}

// TestNextExtraction ensures Next consumes the blob stream
// least-significant-bit first with whole bytes taken directly and
// remainders carried through the sub-byte buffer across calls.
func TestNextExtraction(t *testing.T) {
	ctx := context.Background()

	// Sequential extractions against a single known blob.  A full-byte
	// read must consume exactly one byte with no leftover, and a
	// following 4-bit read must consume the low nibble of the next byte,
	// leaving the high nibble buffered for the call after it.
	r := testReader(t, []byte{0xAB, 0xCD, 0xEF, 0x01})
	steps := []struct {
		bits uint
		want uint32
	}{
		{bits: 8, want: 0xAB},  // whole first byte
		{bits: 4, want: 0xD},   // low nibble of 0xCD
		{bits: 4, want: 0xC},   // buffered high nibble of 0xCD
		{bits: 16, want: 0x01EF}, // little-endian whole bytes
		{bits: 0, want: 0},     // zero-width read consumes nothing
	}
	for i, step := range steps {
		got, err := r.Next(ctx, step.bits)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if got != step.want {
			t.Fatalf("step %d: Next(%d) = %#x, want %#x", i, step.bits,
				got, step.want)
		}
	}
}

// TestNextAcrossBlobBoundary ensures a read that spans a blob boundary
// preserves the bytes already copied and fills the shortfall from the next
// blob without discarding or duplicating entropy.
func TestNextAcrossBlobBoundary(t *testing.T) {
	ctx := context.Background()

	// One-byte blobs force every multi-byte read across a boundary.
	r := testReader(t, []byte{0x34}, []byte{0x12})
	got, err := r.Next(ctx, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x234 {
		t.Fatalf("Next(12) = %#x, want 0x234", got)
	}
}

// TestNextBitWidthLaw ensures extracted values never exceed 2^bits - 1 for
// every supported width.
func TestNextBitWidthLaw(t *testing.T) {
	ctx := context.Background()
	r := testReader(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	for bits := uint(0); bits <= 32; bits++ {
		v, err := r.Next(ctx, bits)
		if err != nil {
			t.Fatalf("width %d: unexpected error: %v", bits, err)
		}
		if bits < 32 && v>>bits != 0 {
			t.Fatalf("width %d: value %#x exceeds limit", bits, v)
		}
	}
}

// TestIntN covers the three bounded-integer regimes: the degenerate bound of
// one consumes no bits, a power-of-two bound consumes exactly log2(n) bits,
// and any other bound rejection-samples draws from the next power of two.
func TestIntN(t *testing.T) {
	ctx := context.Background()

	// Degenerate bound: always zero, zero bit cost.  The following
	// full-byte read proves nothing was consumed.
	r := testReader(t, []byte{0xAA})
	for i := 0; i < 3; i++ {
		v, err := r.IntN(ctx, 1)
		if err != nil {
			t.Fatalf("IntN(1): unexpected error: %v", err)
		}
		if v != 0 {
			t.Fatalf("IntN(1) = %d, want 0", v)
		}
	}
	if got, _ := r.Next(ctx, 8); got != 0xAA {
		t.Fatalf("IntN(1) consumed bits: next byte %#x, want 0xAA", got)
	}

	// Power-of-two bound: exactly four bits consumed, so the high nibble
	// remains for the following read.
	r = testReader(t, []byte{0xBA})
	v, err := r.IntN(ctx, 16)
	if err != nil {
		t.Fatalf("IntN(16): unexpected error: %v", err)
	}
	if v != 0xA {
		t.Fatalf("IntN(16) = %d, want %d", v, 0xA)
	}
	if got, _ := r.Next(ctx, 4); got != 0xB {
		t.Fatalf("IntN(16) consumed wrong bits: leftover %#x, want 0xB", got)
	}

	// Rejection sampling with bound 10 draws 4-bit values: 15 and 10 are
	// rejected before 3 is accepted.
	r = testReader(t, []byte{0xAF, 0x03})
	v, err = r.IntN(ctx, 10)
	if err != nil {
		t.Fatalf("IntN(10): unexpected error: %v", err)
	}
	if v != 3 {
		t.Fatalf("IntN(10) = %d, want 3", v)
	}
}

// TestIntNBounds ensures bounded draws stay within their half-open range
// across repeated extraction.
func TestIntNBounds(t *testing.T) {
	ctx := context.Background()
	r := testReader(t, []byte{0x3C, 0xA7, 0x59, 0xE2, 0x81, 0x6B})

	for _, n := range []int{2, 3, 7, 10, 100, 1000} {
		for i := 0; i < 50; i++ {
			v, err := r.IntN(ctx, n)
			if err != nil {
				t.Fatalf("IntN(%d): unexpected error: %v", n, err)
			}
			if v < 0 || v >= n {
				t.Fatalf("IntN(%d) = %d out of range", n, v)
			}
		}
	}
}

// TestDerived ensures the derived operations composed on the extraction
// primitive respect their documented ranges.
func TestDerived(t *testing.T) {
	ctx := context.Background()
	r := testReader(t, []byte{0x3C, 0xA7, 0x59, 0xE2, 0x81, 0x6B, 0xFF, 0x00})

	for i := 0; i < 25; i++ {
		f, err := r.Float64(ctx)
		if err != nil {
			t.Fatalf("Float64: unexpected error: %v", err)
		}
		if f < 0 || f >= 1 {
			t.Fatalf("Float64 = %v out of range", f)
		}

		d, err := r.Duration(ctx, time.Hour)
		if err != nil {
			t.Fatalf("Duration: unexpected error: %v", err)
		}
		if d < 0 || d >= time.Hour {
			t.Fatalf("Duration = %v out of range", d)
		}

		v32, err := r.Int32(ctx)
		if err != nil {
			t.Fatalf("Int32: unexpected error: %v", err)
		}
		if v32 < 0 {
			t.Fatalf("Int32 = %d is negative", v32)
		}
	}

	// A shuffle must produce a permutation.
	s := []int{0, 1, 2, 3, 4, 5, 6, 7}
	err := r.Shuffle(ctx, len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
	if err != nil {
		t.Fatalf("Shuffle: unexpected error: %v", err)
	}
	seen := make(map[int]bool)
	for _, v := range s {
		if v < 0 || v > 7 || seen[v] {
			t.Fatalf("Shuffle is not a permutation: %v", s)
		}
		seen[v] = true
	}
}

// TestRead ensures Read fills the destination with whole bytes from the
// blob stream.
func TestRead(t *testing.T) {
	ctx := context.Background()
	r := testReader(t, []byte{0x01, 0x02}, []byte{0x03, 0x04})

	buf := make([]byte, 4)
	n, err := r.Read(ctx, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read returned %d, want %d", n, len(buf))
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("Read buf = %x, want %x", buf, want)
		}
	}
}

// TestSource ensures the math/rand/v2 source adapter extracts little-endian
// 64-bit values from the blob stream.
func TestSource(t *testing.T) {
	blob := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	r := testReader(t, blob)

	src := r.Source(context.Background())
	if got, want := src.Uint64(), binary.LittleEndian.Uint64(blob); got != want {
		t.Fatalf("source Uint64 = %#x, want %#x", got, want)
	}
}

// TestQuotaExhausted ensures an empty cache combined with a spent upstream
// allowance fails extraction instead of blocking forever.
func TestQuotaExhausted(t *testing.T) {
	block := make(chan struct{})
	fetch := func() (prefetch.Result[[]byte], error) {
		<-block
		return prefetch.Result[[]byte]{}, errors.New("unreachable")
	}
	cache, err := prefetch.New(prefetch.Config[[]byte]{
		Fetch:     fetch,
		ItemSize:  1,
		CacheSize: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error creating cache: %v", err)
	}
	defer close(block)

	r, err := NewReader(Config{
		Cache: cache,
		Quota: func(ctx context.Context) (int64, error) { return 0, nil },
	})
	if err != nil {
		t.Fatalf("unexpected error creating reader: %v", err)
	}

	if _, err := r.Next(context.Background(), 8); !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Next: got %v, want %v", err, ErrQuotaExhausted)
	}
}

// TestInvalidArguments ensures programmer errors fail fast.
func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	r := testReader(t, []byte{0x00})

	assertPanics := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		f()
	}

	assertPanics("Next(33)", func() { r.Next(ctx, 33) })
	assertPanics("IntN(0)", func() { r.IntN(ctx, 0) })
	assertPanics("IntN(-1)", func() { r.IntN(ctx, -1) })
	assertPanics("Uint64N(0)", func() { r.Uint64N(ctx, 0) })
	assertPanics("Int64N(0)", func() { r.Int64N(ctx, 0) })
	assertPanics("Duration(0)", func() { r.Duration(ctx, 0) })
	assertPanics("Shuffle(-1)", func() { r.Shuffle(ctx, -1, func(i, j int) {}) })
}
