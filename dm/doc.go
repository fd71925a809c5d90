// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

// Package dm implements the direct-messaging state machines: the
// thread directory (ordered conversation list with a pinned support
// thread), the thread view (message history with optimistic sends and
// attachment resolution), and the composer (outgoing content capture
// and validation).
//
// Everything in this package is headless: components hold state, talk
// to the chatapi service interfaces, and expose snapshots for a UI
// layer to render. Network failures degrade locally — a failed profile
// lookup falls back to the raw account ID, a failed image fetch
// becomes a placeholder, a failed history load renders as an empty
// thread. Nothing here propagates an error to a global boundary.
package dm
