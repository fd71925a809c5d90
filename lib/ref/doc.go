// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated identifier types for the Maru
// messaging client: account IDs and server-relative attachment paths.
//
// All types are immutable value types validated at construction. The
// zero value of each type is not valid; use IsZero to check. Types
// implement encoding.TextMarshaler and TextUnmarshaler so that JSON
// (and any other text-based codec) validates identifiers at the
// deserialization boundary instead of deep inside business logic.
package ref
