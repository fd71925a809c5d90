// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// View renders the full frame: thread directory on the left, and the
// conversation, composer, and status bar stacked on the right. An open
// download gate replaces the frame with a centered confirmation.
func (m Model) View() string {
	if !m.ready {
		return "starting…"
	}
	if m.downloadModal != nil {
		return m.viewDownloadModal()
	}

	conversationWidth, _ := m.conversationSize()

	header := m.viewConversationHeader(conversationWidth)
	errorLine := ""
	if m.fieldError != "" {
		errorLine = lipgloss.NewStyle().Foreground(m.theme.FieldErrorText).
			Render(ansi.Truncate("! "+m.fieldError, conversationWidth, "…"))
	}

	right := strings.Join([]string{
		header,
		m.conversation.View(),
		errorLine,
		m.viewComposer(conversationWidth),
		m.viewStatusBar(conversationWidth),
	}, "\n")

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewThreadPane(m.height),
		right,
	)
}

func (m Model) viewConversationHeader(width int) string {
	name := m.counterpartName()
	if name == "" {
		name = "no conversation selected"
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground)
	header := style.Render(name)
	if m.view != nil && m.view.Counterpart() == m.supportID {
		header += lipgloss.NewStyle().Foreground(m.theme.PinnedIndicator).Render("  ★ support")
	}
	return ansi.Truncate(header, width, "…")
}

func (m Model) viewStatusBar(width int) string {
	help := lipgloss.NewStyle().Foreground(m.theme.HelpText)

	var left string
	switch {
	case m.notice != "":
		return lipgloss.NewStyle().Foreground(m.theme.NoticeText).
			Render(ansi.Truncate(m.notice, width, "…"))
	case m.focus == FocusThreads:
		left = "Tab pane · / search · Enter open · r reload · q quit"
	case m.focus == FocusConversation:
		left = "Tab pane · j/k scroll · n/N attachment · o download · q quit"
	default:
		left = "Tab pane · Esc back"
	}
	return help.Render(ansi.Truncate(left, width, "…"))
}
