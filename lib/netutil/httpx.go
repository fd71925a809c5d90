// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response readers for the Maru
// API clients.
//
// All helpers cap response body reads to prevent unbounded memory
// allocation from a misbehaving server. JSON API responses use
// MaxResponseSize; binary object fetches (attachment downloads, which
// are held fully in memory as displayable handles) use the larger
// MaxObjectSize.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on JSON API response body reads: 16 MB.
// Legitimate API responses (thread lists, message history pages) are
// orders of magnitude smaller; the limit exists solely so that a
// pathological response cannot exhaust memory.
const MaxResponseSize int64 = 16 << 20

// MaxObjectSize is the bound on binary object reads: 64 MB. The
// composer rejects outgoing attachments far below this; the generous
// ceiling accommodates objects uploaded by other clients.
const MaxObjectSize int64 = 64 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes. Use instead of io.ReadAll when reading API response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ReadObject reads a binary object response body up to MaxObjectSize
// bytes. Returns an error if the object exceeds the bound rather than
// silently truncating: a truncated image or file is worse than a
// failed fetch.
func ReadObject(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxObjectSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxObjectSize {
		return nil, fmt.Errorf("netutil: object exceeds %d byte limit", MaxObjectSize)
	}
	return data, nil
}

// DecodeResponse reads a JSON API response body (up to MaxResponseSize
// bytes) and JSON-decodes it into v. Replaces the common
// io.ReadAll + json.Unmarshal pattern.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}
