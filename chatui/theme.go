// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the chat TUI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Message authorship.
	SelfName        lipgloss.Color
	CounterpartName lipgloss.Color

	// Delivery and attachment states.
	PendingText      lipgloss.Color // "sending…" marker on optimistic messages.
	AttachmentChip   lipgloss.Color // Resolved attachment rows.
	PlaceholderText  lipgloss.Color // Unresolvable image placeholder.
	UnreadIndicator  lipgloss.Color // Unread dot in the thread list.
	PinnedIndicator  lipgloss.Color // Pinned support thread marker.
	FieldErrorText   lipgloss.Color // Composer field-level errors.
	NoticeText       lipgloss.Color // Transient status notices.
	SearchMatchText  lipgloss.Color // Fuzzy-matched characters in the filter.
	DirectoryResult  lipgloss.Color // Remote search candidates.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	SelfName:        lipgloss.Color("114"), // green
	CounterpartName: lipgloss.Color("75"),  // blue

	PendingText:      lipgloss.Color("240"), // dim gray
	AttachmentChip:   lipgloss.Color("141"), // light purple
	PlaceholderText:  lipgloss.Color("240"),
	UnreadIndicator:  lipgloss.Color("208"), // orange
	PinnedIndicator:  lipgloss.Color("220"), // amber
	FieldErrorText:   lipgloss.Color("196"), // red
	NoticeText:       lipgloss.Color("220"),
	SearchMatchText:  lipgloss.Color("220"),
	DirectoryResult:  lipgloss.Color("75"),
	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
}
