// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the bubbletea terminal UI for Maru direct
// messaging: a thread directory pane with fuzzy filtering and
// directory search, a conversation pane with markdown message bodies
// and attachment rows, and a composer with reaction shortcuts and an
// attachment gate.
//
// The package renders state owned by the dm package. All dm mutations
// triggered by network completions happen inside tea.Cmd goroutines;
// the model re-snapshots the affected component when the completion
// message arrives on the update loop, so rendering never races a
// fetch.
package chatui
