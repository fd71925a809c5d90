// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import "fmt"

// PreconditionError means an action was blocked before any network
// call because a required precondition (typically an authenticated
// session) is missing.
type PreconditionError struct {
	// Reason is a user-facing explanation, e.g. "please sign in".
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("dm: precondition failed: %s", e.Reason)
}

// ValidationError is a field-level rejection of composer input. It
// names the offending field so the UI can render the message next to
// the affected control rather than as a global alert.
type ValidationError struct {
	// Field is the input that failed validation ("text", "attachment",
	// "reaction").
	Field string
	// Reason is a user-facing description, naming the violated limit.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dm: invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps a failed network call. Callers degrade locally
// (empty list, placeholder) and may surface the message near the
// affected region.
type TransportError struct {
	// Op names the failed operation ("load threads", "send message").
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dm: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResourceError means an attachment could not be resolved to a
// displayable handle. The owning message renders a placeholder; the
// rest of the thread is unaffected.
type ResourceError struct {
	// MessageID identifies the message whose attachment failed.
	MessageID string
	Err       error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("dm: attachment for message %s unavailable: %v", e.MessageID, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
