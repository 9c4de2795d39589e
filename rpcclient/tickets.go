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

// Ticket types accepted by ListTickets.
const (
	// TicketTypeSingleton selects tickets that are not part of a chain.
	TicketTypeSingleton = "singleton"

	// TicketTypeHead selects the first tickets of chains.
	TicketTypeHead = "head"

	// TicketTypeTail selects tickets in chains that are not the first of
	// their chain.
	TicketTypeTail = "tail"
)

// maxTicketN is the largest number of tickets that may be reserved with a
// single createTickets request.
const maxTicketN = 50

// CreateTickets reserves n tickets for later use with the value generation
// methods.  When showResult is true, anybody with a ticket id can view the
// values the ticket was eventually used to generate.
func (c *Client) CreateTickets(ctx context.Context, n int, showResult bool) ([]rngjson.Ticket, error) {
	if n < 1 || n > maxTicketN {
		str := fmt.Sprintf("n of %d is outside the valid range [1, %d]",
			n, maxTicketN)
		return nil, makeError(ErrInvalidParam, str)
	}

	params := &rngjson.CreateTicketsParams{
		APIKey:     c.config.APIKey,
		N:          n,
		ShowResult: showResult,
	}
	rawResult, err := c.call(ctx, rngjson.MethodCreateTickets, params)
	if err != nil {
		return nil, err
	}

	var tickets []rngjson.Ticket
	if err := json.Unmarshal(rawResult, &tickets); err != nil {
		str := fmt.Sprintf("failed to decode createTickets result: %v",
			err)
		return nil, makeError(ErrInvalidResult, str)
	}
	return tickets, nil
}

// ListTickets returns all tickets of the provided type that belong to the
// client's API key.  The ticket type must be one of TicketTypeSingleton,
// TicketTypeHead, or TicketTypeTail.
func (c *Client) ListTickets(ctx context.Context, ticketType string) ([]rngjson.Ticket, error) {
	switch ticketType {
	case TicketTypeSingleton, TicketTypeHead, TicketTypeTail:
	default:
		str := fmt.Sprintf("unknown ticket type %q", ticketType)
		return nil, makeError(ErrInvalidParam, str)
	}

	params := &rngjson.ListTicketsParams{
		APIKey:     c.config.APIKey,
		TicketType: ticketType,
	}
	rawResult, err := c.call(ctx, rngjson.MethodListTickets, params)
	if err != nil {
		return nil, err
	}

	var tickets []rngjson.Ticket
	if err := json.Unmarshal(rawResult, &tickets); err != nil {
		str := fmt.Sprintf("failed to decode listTickets result: %v",
			err)
		return nil, makeError(ErrInvalidResult, str)
	}
	return tickets, nil
}

// GetTicket looks up a single ticket by its id.  The ticket id alone
// authorizes the lookup, so this works for tickets belonging to any API key.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*rngjson.Ticket, error) {
	if ticketID == "" {
		return nil, makeError(ErrInvalidParam, "no ticket id specified")
	}

	params := &rngjson.GetTicketParams{TicketID: ticketID}
	rawResult, err := c.call(ctx, rngjson.MethodGetTicket, params)
	if err != nil {
		return nil, err
	}

	var ticket rngjson.Ticket
	if err := json.Unmarshal(rawResult, &ticket); err != nil {
		str := fmt.Sprintf("failed to decode getTicket result: %v", err)
		return nil, makeError(ErrInvalidResult, str)
	}
	return &ticket, nil
}
