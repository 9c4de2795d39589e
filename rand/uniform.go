// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rand

import (
	"context"
	"math/bits"
	"time"
)

// nextBits extracts an unsigned integer of up to 64 uniformly random bits by
// composing the 32-bit extraction primitive.
func (r *Reader) nextBits(ctx context.Context, n uint) (uint64, error) {
	if n <= 32 {
		v, err := r.Next(ctx, n)
		return uint64(v), err
	}
	lo, err := r.Next(ctx, 32)
	if err != nil {
		return 0, err
	}
	hi, err := r.Next(ctx, n-32)
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// Uint32 returns a uniform random uint32.
func (r *Reader) Uint32(ctx context.Context) (uint32, error) {
	return r.Next(ctx, 32)
}

// Uint64 returns a uniform random uint64.
func (r *Reader) Uint64(ctx context.Context) (uint64, error) {
	return r.nextBits(ctx, 64)
}

// Uint64N returns a random uint64 in range [0,n) using rejection sampling:
// draws of ceil(log2(n)) bits are discarded until one falls below n.  When n
// is a power of two no draw can be rejected and the bit cost is exactly
// log2(n); otherwise the expected number of draws is below two.  The loop
// has no hard iteration cap by design.
// Panics if n == 0.
func (r *Reader) Uint64N(ctx context.Context, n uint64) (uint64, error) {
	if n == 0 {
		panic("rand: invalid argument to Uint64N")
	}

	width := uint(bits.Len64(n - 1))
	for {
		v, err := r.nextBits(ctx, width)
		if err != nil {
			return 0, err
		}
		if v < n {
			return v, nil
		}
	}
}

// Uint32N returns a random uint32 in range [0,n) using rejection sampling.
// Panics if n == 0.
func (r *Reader) Uint32N(ctx context.Context, n uint32) (uint32, error) {
	v, err := r.Uint64N(ctx, uint64(n))
	return uint32(v), err
}

// Int32 returns a random 31-bit non-negative integer as an int32.
func (r *Reader) Int32(ctx context.Context) (int32, error) {
	v, err := r.Next(ctx, 31)
	return int32(v), err
}

// Int32N returns, as an int32, a random 31-bit non-negative integer in
// [0,n).
// Panics if n <= 0.
func (r *Reader) Int32N(ctx context.Context, n int32) (int32, error) {
	if n <= 0 {
		panic("rand: invalid argument to Int32N")
	}
	v, err := r.Uint64N(ctx, uint64(n))
	return int32(v), err
}

// Int64 returns a random 63-bit non-negative integer as an int64.
func (r *Reader) Int64(ctx context.Context) (int64, error) {
	v, err := r.nextBits(ctx, 63)
	return int64(v), err
}

// Int64N returns, as an int64, a random 63-bit non-negative integer in
// [0,n).
// Panics if n <= 0.
func (r *Reader) Int64N(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		panic("rand: invalid argument to Int64N")
	}
	v, err := r.Uint64N(ctx, uint64(n))
	return int64(v), err
}

// Int returns a non-negative integer.
func (r *Reader) Int(ctx context.Context) (int, error) {
	v, err := r.nextBits(ctx, uint(bits.UintSize-1))
	return int(v), err
}

// IntN returns, as an int, a random non-negative integer in [0,n).  A bound
// of one always yields zero and consumes no bits; a power-of-two bound
// consumes exactly log2(n) bits; any other bound uses rejection sampling
// over the next power of two.
// Panics if n <= 0.
func (r *Reader) IntN(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		panic("rand: invalid argument to IntN")
	}
	v, err := r.Uint64N(ctx, uint64(n))
	return int(v), err
}

// Float64 returns a uniform random float64 in [0,1) with 53 bits of
// precision.
func (r *Reader) Float64(ctx context.Context) (float64, error) {
	v, err := r.nextBits(ctx, 53)
	if err != nil {
		return 0, err
	}
	return float64(v) / (1 << 53), nil
}

// Duration returns a random duration in [0,n).
// Panics if n <= 0.
func (r *Reader) Duration(ctx context.Context, n time.Duration) (time.Duration, error) {
	if n <= 0 {
		panic("rand: invalid argument to Duration")
	}
	v, err := r.Uint64N(ctx, uint64(n))
	return time.Duration(v), err
}

// Shuffle randomizes the order of n elements by swapping the elements at
// indexes i and j.
// Panics if n < 0.
func (r *Reader) Shuffle(ctx context.Context, n int, swap func(i, j int)) error {
	if n < 0 {
		panic("rand: invalid argument to Shuffle")
	}

	// Fisher-Yates shuffle: https://en.wikipedia.org/wiki/Fisher%E2%80%93Yates_shuffle
	for i := n - 1; i > 0; i-- {
		j, err := r.IntN(ctx, i+1)
		if err != nil {
			return err
		}
		swap(i, j)
	}
	return nil
}
