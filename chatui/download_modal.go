// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/maru-commerce/maru-chat/dm"
)

// downloadModal is the confirmation gate in front of attachment
// downloads. No object fetch happens until the user confirms;
// declining closes the modal with zero network traffic.
type downloadModal struct {
	messageID   string
	displayName string
	busy        bool
}

// openDownloadModal opens the gate for the attachment under the
// cursor. Pending local attachments are skipped — their content is
// already on this machine, but saving mid-send would race the
// reconcile.
func (m Model) openDownloadModal() Model {
	indices := m.attachmentMessages()
	if m.attachmentCursor < 0 || m.attachmentCursor >= len(indices) {
		return m
	}
	message := m.messages[indices[m.attachmentCursor]]
	if message.Attachment == nil || message.State == dm.DeliveryPending {
		return m
	}
	m.downloadModal = &downloadModal{
		messageID:   message.ID,
		displayName: message.Attachment.DisplayName(),
	}
	return m
}

func (m Model) handleDownloadModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.downloadModal.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel), msg.String() == "n":
		m.downloadModal = nil
		return m, nil

	case key.Matches(msg, m.keys.Select), msg.String() == "y":
		m.downloadModal.busy = true
		return m, m.downloadCmd(m.downloadModal.messageID, m.downloadModal.displayName)
	}
	return m, nil
}

func (m Model) downloadCmd(messageID, displayName string) tea.Cmd {
	view := m.view
	directory := m.downloadDirectory
	return func() tea.Msg {
		handle, err := view.Download(context.Background(), messageID)
		if err != nil {
			return downloadResultMsg{messageID: messageID, err: err}
		}
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return downloadResultMsg{messageID: messageID, err: err}
		}
		target := uniquePath(filepath.Join(directory, displayName))
		if err := os.WriteFile(target, handle.Bytes(), 0o644); err != nil {
			return downloadResultMsg{messageID: messageID, err: err}
		}
		return downloadResultMsg{messageID: messageID, savedPath: target}
	}
}

func (m Model) handleDownloadResult(msg downloadResultMsg) (tea.Model, tea.Cmd) {
	m.downloadModal = nil
	m.refreshConversation()

	if msg.err != nil {
		m.logger.Warn("attachment download failed",
			"message_id", msg.messageID, "error", msg.err)
		model, cmd := m.showNotice("download failed: attachment unavailable")
		return model, cmd
	}
	model, cmd := m.showNotice("saved " + msg.savedPath)
	return model, cmd
}

// uniquePath appends a numeric suffix when the target name is taken,
// so repeated downloads never overwrite an earlier file.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	extension := filepath.Ext(path)
	stem := strings.TrimSuffix(path, extension)
	for attempt := 1; ; attempt++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, attempt, extension)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func (m Model) viewDownloadModal() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	body := titleStyle.Render("Download attachment") + "\n\n" +
		"Save " + lipgloss.NewStyle().Foreground(m.theme.AttachmentChip).Render(m.downloadModal.displayName) +
		" to " + m.downloadDirectory + "?\n\n"
	if m.downloadModal.busy {
		body += faint.Render("downloading…")
	} else {
		body += faint.Render("Enter/y save · Esc/n cancel")
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderColor).
		Padding(1, 2).
		Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
