// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/dm"
)

// composerLines is the visible height of the composer input.
const composerLines = 3

// conversationSize returns the viewport dimensions given the current
// terminal size. The right column stacks the conversation, a field
// error line, the composer, and the status bar.
func (m Model) conversationSize() (width, height int) {
	width = m.width - threadPaneWidth
	if width < 20 {
		width = 20
	}
	// 1 header + 1 error line + 1 composer rule + composer + 1 status.
	height = m.height - composerLines - 4
	if height < 3 {
		height = 3
	}
	return width, height
}

// refreshConversation re-snapshots the active thread view and rebuilds
// the viewport content. The viewport scrolls to the newest message
// exactly once per view mutation batch; manual scrolling in between
// stays put.
func (m *Model) refreshConversation() {
	if m.view == nil {
		m.messages = nil
		if m.ready {
			m.conversation.SetContent("")
		}
		return
	}

	m.messages = m.view.Messages()
	indices := m.attachmentMessages()
	if m.attachmentCursor >= len(indices) {
		m.attachmentCursor = len(indices) - 1
	}

	if !m.ready {
		return
	}
	m.conversation.SetContent(m.renderConversation())

	if version := m.view.Version(); version != m.renderedVersion {
		m.renderedVersion = version
		m.conversation.GotoBottom()
	}
}

func (m Model) renderConversation() string {
	if m.threadLoading {
		return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("loading…")
	}
	if len(m.messages) == 0 {
		return lipgloss.NewStyle().Foreground(m.theme.FaintText).
			Render("No messages yet. Say hello — or send a ❤️ with a bare Enter.")
	}

	width := m.conversation.Width
	indices := m.attachmentMessages()
	selectedMessage := -1
	if m.focus == FocusConversation && m.attachmentCursor >= 0 && m.attachmentCursor < len(indices) {
		selectedMessage = indices[m.attachmentCursor]
	}

	var sections []string
	for index := range m.messages {
		sections = append(sections, m.renderMessage(m.messages[index], width, index == selectedMessage))
	}
	return strings.Join(sections, "\n\n")
}

func (m Model) renderMessage(message dm.Message, width int, attachmentSelected bool) string {
	var lines []string
	lines = append(lines, m.renderMessageHeader(message))

	switch message.Kind {
	case chatapi.KindEmoji:
		lines = append(lines, "  "+message.Content)

	case chatapi.KindAttachment:
		lines = append(lines, m.renderAttachmentRow(message, width, attachmentSelected))
		if message.Content != "" {
			lines = append(lines, indentBlock(renderMessageBody(message.Content, m.theme, width-2), "  "))
		}

	default:
		lines = append(lines, indentBlock(renderMessageBody(message.Content, m.theme, width-2), "  "))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderMessageHeader(message dm.Message) string {
	var nameStyle lipgloss.Style
	var name string
	if message.SenderID == m.selfID {
		nameStyle = lipgloss.NewStyle().Foreground(m.theme.SelfName).Bold(true)
		name = "You"
	} else {
		nameStyle = lipgloss.NewStyle().Foreground(m.theme.CounterpartName).Bold(true)
		name = m.counterpartName()
	}

	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	header := nameStyle.Render(name) + faint.Render(" · "+message.CreatedAt.Local().Format("Jan 2 15:04"))
	if message.State == dm.DeliveryPending {
		header += lipgloss.NewStyle().Foreground(m.theme.PendingText).Render("  sending…")
	}
	return header
}

// renderAttachmentRow renders the chip for an attachment in one of its
// states: staged local upload, resolved image, unresolvable
// placeholder, or a file awaiting an explicit download.
func (m Model) renderAttachmentRow(message dm.Message, width int, selected bool) string {
	attachment := message.Attachment
	if attachment == nil {
		return ""
	}

	chipStyle := lipgloss.NewStyle().Foreground(m.theme.AttachmentChip)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	placeholderStyle := lipgloss.NewStyle().Foreground(m.theme.PlaceholderText)

	var chip string
	switch location := attachment.(type) {
	case *dm.LocalAttachment:
		chip = chipStyle.Render(attachmentGlyph(location.IsImage())+" "+location.DisplayName()) +
			faint.Render("  "+formatSize(location.Handle.Size()))

	case *dm.RemoteAttachment:
		switch {
		case location.Placeholder:
			chip = placeholderStyle.Render("▨ image unavailable") +
				faint.Render("  ("+location.DisplayName()+")")
		case location.Image && location.Handle != nil:
			chip = chipStyle.Render("🖼 "+location.DisplayName()) +
				faint.Render("  "+formatSize(location.Handle.Size()))
		case location.Image:
			chip = faint.Render("🖼 " + location.DisplayName() + "  resolving…")
		default:
			chip = chipStyle.Render("📎 "+location.DisplayName()) +
				faint.Render("  press o to download")
		}
	}

	row := "  " + chip
	if selected {
		row = lipgloss.NewStyle().
			Foreground(m.theme.SelectedForeground).
			Background(m.theme.SelectedBackground).
			Render(ansi.Truncate("▸ "+ansi.Strip(chip), width, "…"))
	}
	return row
}

func (m Model) counterpartName() string {
	if m.view == nil {
		return ""
	}
	counterpart := m.view.Counterpart()
	for _, thread := range m.threads {
		if thread.ID == counterpart && thread.User.DisplayName != "" {
			return thread.User.DisplayName
		}
	}
	return counterpart.String()
}

func attachmentGlyph(isImage bool) string {
	if isImage {
		return "🖼"
	}
	return "📎"
}

// indentBlock prefixes every line of a rendered block.
func indentBlock(block, prefix string) string {
	if block == "" {
		return ""
	}
	lines := strings.Split(block, "\n")
	for index := range lines {
		lines[index] = prefix + lines[index]
	}
	return strings.Join(lines, "\n")
}

// formatSize renders a byte count in a compact human form.
func formatSize(size int) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
