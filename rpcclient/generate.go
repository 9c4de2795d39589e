// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rngsource/rngclient/rngjson"
)

// Parameter limits enforced by the service.  Requests outside these limits
// are rejected client side before they are issued so they do not consume any
// of the API key's request allowance.
const (
	maxRequestN = 10000

	minInteger = -1000000000
	maxInteger = 1000000000

	maxSequenceLength = 10000

	minDecimalPlaces = 1
	maxDecimalPlaces = 14

	minSignificantDigits = 2
	maxSignificantDigits = 14
	gaussianLimit        = 1000000

	maxStringLength = 32
	maxCharacters   = 128

	minBlobSize      = 8
	maxBlobSize      = 1048576
	maxTotalBlobBits = 1048576
	blobSizeMultiple = 8
)

// checkN validates the shared request size parameter.
func checkN(n int) error {
	if n < 1 || n > maxRequestN {
		str := fmt.Sprintf("n of %d is outside the valid range [1, %d]",
			n, maxRequestN)
		return makeError(ErrInvalidParam, str)
	}
	return nil
}

// checkRange validates an integer generation range.
func checkRange(min, max int) error {
	if min < minInteger || min > maxInteger {
		str := fmt.Sprintf("min of %d is outside the valid range "+
			"[%d, %d]", min, minInteger, maxInteger)
		return makeError(ErrInvalidParam, str)
	}
	if max < minInteger || max > maxInteger {
		str := fmt.Sprintf("max of %d is outside the valid range "+
			"[%d, %d]", max, minInteger, maxInteger)
		return makeError(ErrInvalidParam, str)
	}
	if max < min {
		str := fmt.Sprintf("max of %d is less than min of %d", max, min)
		return makeError(ErrInvalidParam, str)
	}
	return nil
}

// generate issues the provided value generation method, decodes the shared
// result envelope with the expected element type, and records the advisory
// delay the service reported.
func generate[E any](ctx context.Context, c *Client, method string, params interface{}) (*rngjson.GenerateResult[E], error) {
	rawResult, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}

	var result rngjson.GenerateResult[E]
	if err := json.Unmarshal(rawResult, &result); err != nil {
		str := fmt.Sprintf("failed to decode %s result: %v", method, err)
		return nil, makeError(ErrInvalidResult, str)
	}
	c.noteAdvisoryDelay(result.AdvisoryDelay)
	return &result, nil
}

// GenerateIntegers generates n true random integers in the inclusive range
// [min, max], sampled uniformly with replacement.
func (c *Client) GenerateIntegers(ctx context.Context, n, min, max int) ([]int, error) {
	res, err := c.GenerateIntegersResult(ctx, n, min, max)
	if err != nil {
		return nil, err
	}
	return res.Random.Data, nil
}

// GenerateIntegersResult works like GenerateIntegers but returns the full
// result envelope, including the usage accounting fields, instead of just
// the generated values.
func (c *Client) GenerateIntegersResult(ctx context.Context, n, min, max int) (*rngjson.GenerateResult[int], error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if err := checkRange(min, max); err != nil {
		return nil, err
	}

	params := &rngjson.GenerateIntegersParams{
		APIKey:      c.config.APIKey,
		N:           n,
		Min:         min,
		Max:         max,
		Replacement: true,
		Base:        10,
	}
	return generate[int](ctx, c, rngjson.MethodGenerateIntegers, params)
}

// GenerateIntegerSequences generates n sequences of length true random
// integers each, with every element drawn uniformly from the inclusive range
// [min, max] with replacement.
func (c *Client) GenerateIntegerSequences(ctx context.Context, n, length, min, max int) ([][]int, error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if length < 1 || length > maxSequenceLength {
		str := fmt.Sprintf("length of %d is outside the valid range "+
			"[1, %d]", length, maxSequenceLength)
		return nil, makeError(ErrInvalidParam, str)
	}
	if err := checkRange(min, max); err != nil {
		return nil, err
	}

	params := &rngjson.GenerateIntegerSequencesParams{
		APIKey:      c.config.APIKey,
		N:           n,
		Length:      length,
		Min:         min,
		Max:         max,
		Replacement: true,
		Base:        10,
	}
	res, err := generate[[]int](ctx, c,
		rngjson.MethodGenerateIntegerSequences, params)
	if err != nil {
		return nil, err
	}
	return res.Random.Data, nil
}

// GenerateDecimalFractions generates n true random decimal fractions from
// the uniform distribution across [0, 1) with the requested number of
// decimal places.
func (c *Client) GenerateDecimalFractions(ctx context.Context, n, decimalPlaces int) ([]float64, error) {
	res, err := c.GenerateDecimalFractionsResult(ctx, n, decimalPlaces)
	if err != nil {
		return nil, err
	}
	return res.Random.Data, nil
}

// GenerateDecimalFractionsResult works like GenerateDecimalFractions but
// returns the full result envelope.
func (c *Client) GenerateDecimalFractionsResult(ctx context.Context, n, decimalPlaces int) (*rngjson.GenerateResult[float64], error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if decimalPlaces < minDecimalPlaces || decimalPlaces > maxDecimalPlaces {
		str := fmt.Sprintf("decimal places of %d is outside the valid "+
			"range [%d, %d]", decimalPlaces, minDecimalPlaces,
			maxDecimalPlaces)
		return nil, makeError(ErrInvalidParam, str)
	}

	params := &rngjson.GenerateDecimalFractionsParams{
		APIKey:        c.config.APIKey,
		N:             n,
		DecimalPlaces: decimalPlaces,
		Replacement:   true,
	}
	return generate[float64](ctx, c, rngjson.MethodGenerateDecimalFractions,
		params)
}

// GenerateGaussians generates n true random numbers from a Gaussian
// distribution with the provided mean and standard deviation, rounded to the
// requested number of significant digits.
func (c *Client) GenerateGaussians(ctx context.Context, n int, mean, stddev float64, significantDigits int) ([]float64, error) {
	res, err := c.GenerateGaussiansResult(ctx, n, mean, stddev,
		significantDigits)
	if err != nil {
		return nil, err
	}
	return res.Random.Data, nil
}

// GenerateGaussiansResult works like GenerateGaussians but returns the full
// result envelope.
func (c *Client) GenerateGaussiansResult(ctx context.Context, n int, mean, stddev float64, significantDigits int) (*rngjson.GenerateResult[float64], error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if mean < -gaussianLimit || mean > gaussianLimit {
		str := fmt.Sprintf("mean of %v is outside the valid range "+
			"[%d, %d]", mean, -gaussianLimit, gaussianLimit)
		return nil, makeError(ErrInvalidParam, str)
	}
	if stddev < -gaussianLimit || stddev > gaussianLimit {
		str := fmt.Sprintf("standard deviation of %v is outside the "+
			"valid range [%d, %d]", stddev, -gaussianLimit,
			gaussianLimit)
		return nil, makeError(ErrInvalidParam, str)
	}
	if significantDigits < minSignificantDigits ||
		significantDigits > maxSignificantDigits {

		str := fmt.Sprintf("significant digits of %d is outside the "+
			"valid range [%d, %d]", significantDigits,
			minSignificantDigits, maxSignificantDigits)
		return nil, makeError(ErrInvalidParam, str)
	}

	params := &rngjson.GenerateGaussiansParams{
		APIKey:            c.config.APIKey,
		N:                 n,
		Mean:              mean,
		StandardDeviation: stddev,
		SignificantDigits: significantDigits,
	}
	return generate[float64](ctx, c, rngjson.MethodGenerateGaussians, params)
}

// GenerateStrings generates n true random strings of the provided length
// with every position sampled uniformly from the provided character set with
// replacement.
func (c *Client) GenerateStrings(ctx context.Context, n, length int, characters string) ([]string, error) {
	res, err := c.GenerateStringsResult(ctx, n, length, characters)
	if err != nil {
		return nil, err
	}
	return res.Random.Data, nil
}

// GenerateStringsResult works like GenerateStrings but returns the full
// result envelope.
func (c *Client) GenerateStringsResult(ctx context.Context, n, length int, characters string) (*rngjson.GenerateResult[string], error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if length < 1 || length > maxStringLength {
		str := fmt.Sprintf("length of %d is outside the valid range "+
			"[1, %d]", length, maxStringLength)
		return nil, makeError(ErrInvalidParam, str)
	}
	if len(characters) < 1 || len(characters) > maxCharacters {
		str := fmt.Sprintf("character set size of %d is outside the "+
			"valid range [1, %d]", len(characters), maxCharacters)
		return nil, makeError(ErrInvalidParam, str)
	}

	params := &rngjson.GenerateStringsParams{
		APIKey:      c.config.APIKey,
		N:           n,
		Length:      length,
		Characters:  characters,
		Replacement: true,
	}
	return generate[string](ctx, c, rngjson.MethodGenerateStrings, params)
}

// GenerateUUIDs generates n version 4 true random UUIDs.
func (c *Client) GenerateUUIDs(ctx context.Context, n int) ([]uuid.UUID, error) {
	res, err := c.GenerateUUIDsResult(ctx, n)
	if err != nil {
		return nil, err
	}
	return res.Random.Data, nil
}

// GenerateUUIDsResult works like GenerateUUIDs but returns the full result
// envelope.
func (c *Client) GenerateUUIDsResult(ctx context.Context, n int) (*rngjson.GenerateResult[uuid.UUID], error) {
	if err := checkN(n); err != nil {
		return nil, err
	}

	params := &rngjson.GenerateUUIDsParams{
		APIKey: c.config.APIKey,
		N:      n,
	}
	return generate[uuid.UUID](ctx, c, rngjson.MethodGenerateUUIDs, params)
}

// GenerateBlobs generates n opaque blobs of true random data, each size bits
// long.  The size must be a multiple of 8 and the total amount of requested
// data may not exceed the service's per-request maximum.
func (c *Client) GenerateBlobs(ctx context.Context, n, size int) ([][]byte, error) {
	res, err := c.GenerateBlobsResult(ctx, n, size)
	if err != nil {
		return nil, err
	}

	blobs := make([][]byte, 0, len(res.Random.Data))
	for _, encoded := range res.Random.Data {
		blob, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			str := fmt.Sprintf("failed to decode blob: %v", err)
			return nil, makeError(ErrInvalidResult, str)
		}
		blobs = append(blobs, blob)
	}
	return blobs, nil
}

// GenerateBlobsResult works like GenerateBlobs but returns the full result
// envelope with the blobs still in their base64 encoding.
func (c *Client) GenerateBlobsResult(ctx context.Context, n, size int) (*rngjson.GenerateResult[string], error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if size < minBlobSize || size > maxBlobSize {
		str := fmt.Sprintf("blob size of %d is outside the valid "+
			"range [%d, %d]", size, minBlobSize, maxBlobSize)
		return nil, makeError(ErrInvalidParam, str)
	}
	if size%blobSizeMultiple != 0 {
		str := fmt.Sprintf("blob size of %d is not a multiple of %d",
			size, blobSizeMultiple)
		return nil, makeError(ErrInvalidParam, str)
	}
	if n*size > maxTotalBlobBits {
		str := fmt.Sprintf("total request of %d bits exceeds the "+
			"maximum of %d", n*size, maxTotalBlobBits)
		return nil, makeError(ErrInvalidParam, str)
	}

	params := &rngjson.GenerateBlobsParams{
		APIKey: c.config.APIKey,
		N:      n,
		Size:   size,
		Format: rngjson.BlobFormatBase64,
	}
	return generate[string](ctx, c, rngjson.MethodGenerateBlobs, params)
}
