// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// NOTE: This file is intended to house the statically typed parameter
// structs for the methods the rngsource service accepts.

package rngjson

// Method names accepted by the rngsource service.
const (
	MethodGenerateIntegers         = "generateIntegers"
	MethodGenerateIntegerSequences = "generateIntegerSequences"
	MethodGenerateDecimalFractions = "generateDecimalFractions"
	MethodGenerateGaussians        = "generateGaussians"
	MethodGenerateStrings          = "generateStrings"
	MethodGenerateUUIDs            = "generateUUIDs"
	MethodGenerateBlobs            = "generateBlobs"
	MethodGetUsage                 = "getUsage"
	MethodCreateTickets            = "createTickets"
	MethodListTickets              = "listTickets"
	MethodGetTicket                = "getTicket"
)

// Blob formats accepted by the generateBlobs method.
const (
	BlobFormatBase64 = "base64"
	BlobFormatHex    = "hex"
)

// GenerateIntegersParams defines the parameters for the generateIntegers
// method, which generates true random integers within a user-defined range.
type GenerateIntegersParams struct {
	APIKey      string `json:"apiKey"`
	N           int    `json:"n"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Replacement bool   `json:"replacement"`
	Base        int    `json:"base"`
	TicketID    string `json:"ticketId,omitempty"`
}

// GenerateIntegerSequencesParams defines the parameters for the
// generateIntegerSequences method, which generates uniform sequences of true
// random integers within a user-defined range.
type GenerateIntegerSequencesParams struct {
	APIKey      string `json:"apiKey"`
	N           int    `json:"n"`
	Length      int    `json:"length"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Replacement bool   `json:"replacement"`
	Base        int    `json:"base"`
	TicketID    string `json:"ticketId,omitempty"`
}

// GenerateDecimalFractionsParams defines the parameters for the
// generateDecimalFractions method, which generates true random decimal
// fractions from a uniform distribution across the [0,1) interval with a
// user-defined number of decimal places.
type GenerateDecimalFractionsParams struct {
	APIKey        string `json:"apiKey"`
	N             int    `json:"n"`
	DecimalPlaces int    `json:"decimalPlaces"`
	Replacement   bool   `json:"replacement"`
	TicketID      string `json:"ticketId,omitempty"`
}

// GenerateGaussiansParams defines the parameters for the generateGaussians
// method, which generates true random numbers from a Gaussian distribution.
type GenerateGaussiansParams struct {
	APIKey            string  `json:"apiKey"`
	N                 int     `json:"n"`
	Mean              float64 `json:"mean"`
	StandardDeviation float64 `json:"standardDeviation"`
	SignificantDigits int     `json:"significantDigits"`
	TicketID          string  `json:"ticketId,omitempty"`
}

// GenerateStringsParams defines the parameters for the generateStrings
// method, which generates true random strings sampled from a user-defined
// character set.
type GenerateStringsParams struct {
	APIKey      string `json:"apiKey"`
	N           int    `json:"n"`
	Length      int    `json:"length"`
	Characters  string `json:"characters"`
	Replacement bool   `json:"replacement"`
	TicketID    string `json:"ticketId,omitempty"`
}

// GenerateUUIDsParams defines the parameters for the generateUUIDs method,
// which generates version 4 true random UUIDs.
type GenerateUUIDsParams struct {
	APIKey   string `json:"apiKey"`
	N        int    `json:"n"`
	TicketID string `json:"ticketId,omitempty"`
}

// GenerateBlobsParams defines the parameters for the generateBlobs method,
// which generates opaque blobs of true random data.  Size is specified in
// bits and must be a multiple of 8.
type GenerateBlobsParams struct {
	APIKey   string `json:"apiKey"`
	N        int    `json:"n"`
	Size     int    `json:"size"`
	Format   string `json:"format"`
	TicketID string `json:"ticketId,omitempty"`
}

// GetUsageParams defines the parameters for the getUsage method, which
// queries the usage accounting of an API key.
type GetUsageParams struct {
	APIKey string `json:"apiKey"`
}

// CreateTicketsParams defines the parameters for the createTickets method,
// which reserves tickets for later use with the value generation methods.
type CreateTicketsParams struct {
	APIKey     string `json:"apiKey"`
	N          int    `json:"n"`
	ShowResult bool   `json:"showResult"`
}

// ListTicketsParams defines the parameters for the listTickets method.  The
// ticket type must be one of "singleton", "head", or "tail".
type ListTicketsParams struct {
	APIKey     string `json:"apiKey"`
	TicketType string `json:"ticketType"`
}

// GetTicketParams defines the parameters for the getTicket method, which
// looks up a single ticket by its id.
type GetTicketParams struct {
	TicketID string `json:"ticketId"`
}
