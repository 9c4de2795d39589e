// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rngjson

// Random wraps the generated data of a value generation response along with
// the time the service completed the generation.  The element type varies
// from one method to the next.
type Random[E any] struct {
	Data           []E    `json:"data"`
	CompletionTime string `json:"completionTime"`
}

// GenerateResult is the shared result envelope of all value generation
// methods.  Every response reports the number of bits the request consumed,
// the remaining daily bit and request allowances of the API key, and an
// advisory delay in milliseconds the service asks the client to wait before
// issuing its next request.
type GenerateResult[E any] struct {
	Random        Random[E] `json:"random"`
	BitsUsed      int64     `json:"bitsUsed"`
	BitsLeft      int64     `json:"bitsLeft"`
	RequestsLeft  int64     `json:"requestsLeft"`
	AdvisoryDelay int64     `json:"advisoryDelay"`
}

// UsageResult models the result of the getUsage method.
type UsageResult struct {
	Status        string `json:"status"`
	CreationTime  string `json:"creationTime"`
	BitsLeft      int64  `json:"bitsLeft"`
	RequestsLeft  int64  `json:"requestsLeft"`
	TotalBits     int64  `json:"totalBits"`
	TotalRequests int64  `json:"totalRequests"`
}

// Ticket describes a single ticket as returned by the createTickets,
// listTickets, and getTicket methods.  Tickets may be chained, in which case
// the previous and next ids describe the ticket's position in the chain.
type Ticket struct {
	TicketID         string `json:"ticketId"`
	HashedTicketID   string `json:"hashedTicketId"`
	ShowResult       bool   `json:"showResult"`
	CreationTime     string `json:"creationTime"`
	UsedTime         string `json:"usedTime,omitempty"`
	ExpirationTime   string `json:"expirationTime,omitempty"`
	PreviousTicketID string `json:"previousTicketId,omitempty"`
	NextTicketID     string `json:"nextTicketId,omitempty"`
	UsedMethod       string `json:"usedMethod,omitempty"`
}
