// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the chat TUI.
type KeyMap struct {
	// Navigation (context-sensitive: thread list movement, conversation
	// scrolling, or search result movement depending on current focus).
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Focus switching.
	FocusNext key.Binding

	// Confirmation and dismissal.
	Select key.Binding // Open thread / confirm download / submit message.
	Cancel key.Binding // Close search, prompt, or modal.

	// Thread list.
	SearchActivate key.Binding // Enter directory search mode.
	Reload         key.Binding // Re-fetch the thread directory.

	// Composer.
	Newline key.Binding // Insert a line break without submitting.
	Attach  key.Binding // Open the attach-file prompt.
	Unstage key.Binding // Drop the staged attachment.
	React   key.Binding // Open the reaction picker.

	// Conversation.
	AttachmentNext     key.Binding // Move the attachment cursor down.
	AttachmentPrevious key.Binding // Move the attachment cursor up.
	Download           key.Binding // Open the download confirmation for the selected attachment.

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) works in the thread list and conversation panes; the composer
// receives those runes as text.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	FocusNext: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "switch pane"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "select"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
	SearchActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Newline: key.NewBinding(
		key.WithKeys("alt+enter"),
		key.WithHelp("M-Enter", "newline"),
	),
	Attach: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("C-o", "attach file"),
	),
	Unstage: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("C-x", "drop attachment"),
	),
	React: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "react"),
	),
	AttachmentNext: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "next attachment"),
	),
	AttachmentPrevious: key.NewBinding(
		key.WithKeys("N"),
		key.WithHelp("N", "prev attachment"),
	),
	Download: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "download"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
