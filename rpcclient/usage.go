// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rngsource/rngclient/rngjson"
)

// Usage queries the usage accounting of the client's API key, including its
// remaining daily bit and request allowances.  Calling it does not consume
// any of the key's allowances.
func (c *Client) Usage(ctx context.Context) (*rngjson.UsageResult, error) {
	params := &rngjson.GetUsageParams{APIKey: c.config.APIKey}
	rawResult, err := c.call(ctx, rngjson.MethodGetUsage, params)
	if err != nil {
		return nil, err
	}

	var result rngjson.UsageResult
	if err := json.Unmarshal(rawResult, &result); err != nil {
		str := fmt.Sprintf("failed to decode getUsage result: %v", err)
		return nil, makeError(ErrInvalidResult, str)
	}
	return &result, nil
}
