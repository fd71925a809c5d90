// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// UserID is a validated Maru account ID (e.g., "KH001", "AD00012").
//
// Account IDs are assigned by the account service: a two-letter
// uppercase class prefix ("KH" customer, "AD" staff) followed by a
// numeric serial. This type validates the structural format but does
// NOT check that the account exists — existence is the directory
// service's concern.
//
// UserID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type UserID struct {
	id string
}

// ParseUserID validates and wraps a raw account ID string. Returns an
// error if the string is empty, lacks the two-letter uppercase prefix,
// or has a non-numeric serial.
func ParseUserID(raw string) (UserID, error) {
	if err := validateUserID(raw); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// String returns the full account ID string (e.g., "AD00012").
func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is the zero value (uninitialized).
func (u UserID) IsZero() bool { return u.id == "" }

// Class returns the two-letter account class prefix (e.g., "AD").
// Panics if called on a zero-value UserID.
func (u UserID) Class() string {
	if u.id == "" {
		panic("UserID.Class called on zero value")
	}
	return u.id[:2]
}

// MarshalText implements encoding.TextMarshaler for JSON and other
// text-based serialization formats.
func (u UserID) MarshalText() ([]byte, error) {
	if u.id == "" {
		return []byte{}, nil
	}
	return []byte(u.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Validates the
// account ID format. An empty input produces the zero value (unset
// account ID).
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// maxUserIDLength bounds account IDs well above anything the account
// service issues, guarding against pathological input from a
// misbehaving server.
const maxUserIDLength = 32

func validateUserID(raw string) error {
	if raw == "" {
		return fmt.Errorf("ref: account ID is empty")
	}
	if len(raw) > maxUserIDLength {
		return fmt.Errorf("ref: account ID %q exceeds %d characters", raw, maxUserIDLength)
	}
	if len(raw) < 3 {
		return fmt.Errorf("ref: account ID %q is too short: want two-letter prefix plus serial", raw)
	}
	for position := 0; position < 2; position++ {
		c := raw[position]
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("ref: account ID %q has invalid class prefix: want two uppercase letters", raw)
		}
	}
	for position := 2; position < len(raw); position++ {
		c := raw[position]
		if c < '0' || c > '9' {
			return fmt.Errorf("ref: account ID %q has non-numeric serial at position %d", raw, position)
		}
	}
	return nil
}
