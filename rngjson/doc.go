// Copyright (c) 2025 The rngsource developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package rngjson provides primitives for working with the rngsource JSON-RPC
2.0 API.

# Overview

The rngsource service exposes its value generation, usage accounting, and
ticket bookkeeping operations as JSON-RPC 2.0 methods invoked over HTTPS
POST or a websocket endpoint.  This package provides the request and
response envelope types, the statically typed parameter and result structs
for each method, and the error types needed to interpret failures.

Method parameters are marshalled from exported structs with json struct
tags rather than positional arrays, matching the object-style params the
service expects.  Results are unmarshalled into typed structs, with the
value generation methods sharing a generic GenerateResult envelope that
carries the usage accounting fields (bitsUsed, bitsLeft, requestsLeft, and
advisoryDelay) alongside the generated data.

# Errors

There are two distinct classes of errors:

  - Errors related to client-side marshalling and parsing
  - RPC errors returned by the service inside a response envelope

The first category is identified via an ErrorKind wrapped in an Error, both
of which fully support the errors.Is and errors.As standard library
functions.  The second category consists of RPCError instances returned by
the service, whose codes are defined as constants in this package.
*/
package rngjson
