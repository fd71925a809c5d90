// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// AttachmentPath is a validated server-relative attachment path as
// returned by the message service (e.g., "uploads/1699871234_invoice.pdf").
//
// Paths are always relative to the binary-object service root: no
// leading slash, no empty segments, no "." or ".." segments. The
// client never constructs these itself — they arrive from the server
// in confirmed messages, and validation at the deserialization
// boundary keeps a misbehaving server from steering fetches outside
// the object root.
//
// AttachmentPath is an immutable value type. The zero value is not
// valid; use IsZero to check.
type AttachmentPath struct {
	path string
}

// ParseAttachmentPath validates and wraps a raw server-relative path.
func ParseAttachmentPath(raw string) (AttachmentPath, error) {
	if err := validateAttachmentPath(raw); err != nil {
		return AttachmentPath{}, err
	}
	return AttachmentPath{path: raw}, nil
}

// String returns the server-relative path string.
func (p AttachmentPath) String() string { return p.path }

// IsZero reports whether the AttachmentPath is the zero value.
func (p AttachmentPath) IsZero() bool { return p.path == "" }

// Base returns the trailing path segment (the stored file name,
// including any server-added disambiguating prefix). Panics if called
// on a zero-value AttachmentPath.
func (p AttachmentPath) Base() string {
	if p.path == "" {
		panic("AttachmentPath.Base called on zero value")
	}
	if index := strings.LastIndexByte(p.path, '/'); index >= 0 {
		return p.path[index+1:]
	}
	return p.path
}

// MarshalText implements encoding.TextMarshaler.
func (p AttachmentPath) MarshalText() ([]byte, error) {
	if p.path == "" {
		return []byte{}, nil
	}
	return []byte(p.path), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Validates the
// path format. An empty input produces the zero value (no attachment).
func (p *AttachmentPath) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*p = AttachmentPath{}
		return nil
	}
	parsed, err := ParseAttachmentPath(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// maxAttachmentPathLength bounds paths against pathological server
// responses.
const maxAttachmentPathLength = 512

func validateAttachmentPath(raw string) error {
	if raw == "" {
		return fmt.Errorf("ref: attachment path is empty")
	}
	if len(raw) > maxAttachmentPathLength {
		return fmt.Errorf("ref: attachment path exceeds %d characters", maxAttachmentPathLength)
	}
	if strings.HasPrefix(raw, "/") {
		return fmt.Errorf("ref: attachment path %q must be server-relative (no leading slash)", raw)
	}
	if strings.ContainsAny(raw, "\\\x00") {
		return fmt.Errorf("ref: attachment path %q contains forbidden characters", raw)
	}
	for _, segment := range strings.Split(raw, "/") {
		if segment == "" {
			return fmt.Errorf("ref: attachment path %q has an empty segment", raw)
		}
		if segment == "." || segment == ".." {
			return fmt.Errorf("ref: attachment path %q has a relative segment", raw)
		}
	}
	return nil
}
