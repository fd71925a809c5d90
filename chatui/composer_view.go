// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/maru-commerce/maru-chat/dm"
)

// --- Attach-file prompt ---

func (m Model) handleAttachPromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.attachPrompt = false
		m.attachEditor.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		path := strings.TrimSpace(m.attachEditor.Value())
		m.attachPrompt = false
		m.attachEditor.Reset()
		if path == "" {
			return m, nil
		}
		return m, readAttachmentCmd(path)
	}

	m.attachEditor.Update(msg)
	return m, nil
}

func readAttachmentCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if strings.HasPrefix(path, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				path = filepath.Join(home, path[2:])
			}
		}
		data, err := os.ReadFile(path)
		return attachLoadedMsg{path: path, data: data, err: err}
	}
}

func (m Model) handleAttachLoaded(msg attachLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.fieldError = "couldn't read " + filepath.Base(msg.path)
		return m, nil
	}

	staged := dm.StagedAttachment{
		Filename:    filepath.Base(msg.path),
		ContentType: detectContentType(msg.path, msg.data),
		Data:        msg.data,
	}
	if err := m.composer.Stage(staged); err != nil {
		// Oversize files are rejected here, before any network call.
		m.fieldError = validationText(err)
		return m, nil
	}
	m.fieldError = ""
	m.focus = FocusComposer
	return m, nil
}

// detectContentType prefers the file extension and falls back to
// content sniffing.
func detectContentType(path string, data []byte) string {
	if byExtension := mime.TypeByExtension(filepath.Ext(path)); byExtension != "" {
		return byExtension
	}
	return http.DetectContentType(data)
}

// --- Rendering ---

func (m Model) viewComposer(width int) string {
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	rule := lipgloss.NewStyle().Foreground(m.theme.BorderColor).
		Render(strings.Repeat("─", width))

	var lines []string
	lines = append(lines, rule)

	if m.attachPrompt {
		lines = append(lines, faint.Render("attach file path (Enter to stage, Esc to cancel):"))
		lines = append(lines, ansi.Truncate("> "+m.attachEditor.Value()+"█", width, ""))
		for len(lines) < composerLines+1 {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}

	if m.reactionOpen {
		lines = append(lines, m.renderReactionPicker())
	} else if staged := m.composer.Attachment(); staged != nil {
		chip := lipgloss.NewStyle().Foreground(m.theme.AttachmentChip).
			Render("📎 " + staged.Filename)
		lines = append(lines, chip+faint.Render("  "+formatSize(len(staged.Data))+"  C-x to remove"))
	} else {
		hint := "Enter send · M-Enter newline · C-o attach · C-r react"
		if m.composer.HeartShortcut() && m.editor.Empty() {
			hint = "Enter sends ❤️ · M-Enter newline · C-o attach · C-r react"
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(hint))
	}

	lines = append(lines, m.editor.View(width, composerLines-1, m.focus == FocusComposer && !m.reactionOpen, m.theme))
	return strings.Join(lines, "\n")
}

func (m Model) renderReactionPicker() string {
	var parts []string
	for index, emoji := range dm.ReactionPalette {
		if index == m.reactionIndex {
			parts = append(parts, lipgloss.NewStyle().
				Background(m.theme.SelectedBackground).
				Render("["+emoji+"]"))
		} else {
			parts = append(parts, " "+emoji+" ")
		}
	}
	return strings.Join(parts, " ")
}
