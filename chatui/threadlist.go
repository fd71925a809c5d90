// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/dm"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

// searchCandidate is one selectable row while directory search is
// active: either an existing thread matched locally or a remote
// directory user.
type searchCandidate struct {
	isThread  bool
	thread    dm.Thread
	user      chatapi.User
	score     int
	positions []int
}

// searchCandidates combines the fuzzy-filtered local threads with the
// remote search results. Remote users who already have a thread are
// dropped; selecting the thread covers them.
func (m Model) searchCandidates() []searchCandidate {
	query := []rune(strings.TrimSpace(m.searchEditor.Value()))

	var candidates []searchCandidate
	if len(query) == 0 {
		for _, thread := range m.threads {
			candidates = append(candidates, searchCandidate{isThread: true, thread: thread})
		}
	} else {
		for _, thread := range m.threads {
			match := fuzzyMatch(thread.User.DisplayName, query, m.slab)
			if match.Score <= 0 {
				match = fuzzyMatch(thread.ID.String(), query, m.slab)
				match.Positions = nil
			}
			if match.Score <= 0 {
				continue
			}
			candidates = append(candidates, searchCandidate{
				isThread:  true,
				thread:    thread,
				score:     match.Score,
				positions: match.Positions,
			})
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].score > candidates[b].score
		})
	}

	existing := make(map[ref.UserID]bool, len(m.threads))
	for _, thread := range m.threads {
		existing[thread.ID] = true
	}
	for _, user := range m.searchUsers {
		if existing[user.ID] || user.ID == m.selfID {
			continue
		}
		candidates = append(candidates, searchCandidate{user: user})
	}
	return candidates
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.exitSearch()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		return m.chooseSearchCandidate()

	case msg.Type == tea.KeyUp:
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case msg.Type == tea.KeyDown:
		if m.searchCursor < len(m.searchCandidates())-1 {
			m.searchCursor++
		}
		return m, nil
	}

	before := m.searchEditor.Value()
	m.searchEditor.Update(msg)
	after := m.searchEditor.Value()
	if before == after {
		return m, nil
	}

	// The local filter updates on every keystroke; the remote search
	// waits out the debounce so a fast typist issues one request.
	m.searchCursor = 0
	m.searchGeneration++
	generation := m.searchGeneration

	if len([]rune(strings.TrimSpace(after))) < searchMinRunes {
		m.searchUsers = nil
		m.searchPending = false
		return m, nil
	}
	m.searchPending = true
	return m, tea.Tick(dm.SearchDebounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{generation: generation}
	})
}

func (m Model) handleSearchDebounce(msg searchDebounceMsg) (tea.Model, tea.Cmd) {
	// A newer keystroke restarted the quiet period; let its tick win.
	if !m.searchActive || msg.generation != m.searchGeneration {
		return m, nil
	}
	query := strings.TrimSpace(m.searchEditor.Value())
	if len([]rune(query)) < searchMinRunes {
		return m, nil
	}
	search := m.search
	return m, func() tea.Msg {
		result, err := search.Dispatch(context.Background(), query)
		return searchResultMsg{result: result, err: err}
	}
}

func (m Model) handleSearchResult(msg searchResultMsg) (tea.Model, tea.Cmd) {
	// Out-of-order completion: only the latest dispatch may render.
	if !m.search.Current(msg.result) {
		return m, nil
	}
	m.searchPending = false
	if !m.searchActive {
		return m, nil
	}

	if msg.err != nil {
		m.logger.Warn("directory search failed", "query", msg.result.Query, "error", msg.err)
		m.searchUsers = nil
		model, cmd := m.showNotice("directory search is unavailable right now")
		return model, cmd
	}
	m.searchUsers = msg.result.Users
	if m.searchCursor >= len(m.searchCandidates()) {
		m.searchCursor = 0
	}
	return m, nil
}

func (m Model) chooseSearchCandidate() (tea.Model, tea.Cmd) {
	candidates := m.searchCandidates()
	if m.searchCursor >= len(candidates) {
		return m, nil
	}
	candidate := candidates[m.searchCursor]

	var target ref.UserID
	if candidate.isThread {
		if err := m.directory.Select(candidate.thread.ID); err != nil {
			return m, nil
		}
		target = candidate.thread.ID
	} else {
		target = m.directory.Promote(candidate.user).ID
	}

	m.exitSearch()
	m.refreshThreads()
	m.focus = FocusComposer
	model, cmd := m.openThread(target)
	return model, cmd
}

func (m *Model) exitSearch() {
	m.searchActive = false
	m.searchEditor.Reset()
	m.searchUsers = nil
	m.searchCursor = 0
	m.searchPending = false
}

// --- Rendering ---

// threadPaneWidth is the fixed width of the directory pane.
const threadPaneWidth = 34

func (m Model) viewThreadPane(height int) string {
	width := threadPaneWidth - 1 // Minus the border column.
	var lines []string

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	if m.searchActive {
		lines = append(lines, headerStyle.Render("Find people"))
		prompt := "/" + m.searchEditor.Value()
		if m.searchPending {
			prompt += " …"
		}
		lines = append(lines, ansi.Truncate(prompt+"█", width, ""))
		lines = append(lines, m.renderSearchRows(width, height-3)...)
	} else {
		title := "Conversations"
		if m.directoryLoading {
			title += " …"
		}
		lines = append(lines, headerStyle.Render(title))
		lines = append(lines, faint.Render(strings.Repeat("─", width)))
		lines = append(lines, m.renderThreadRows(width, height-2)...)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	pane := lipgloss.NewStyle().
		Width(width).
		Height(height).
		MaxHeight(height).
		Render(strings.Join(lines[:height], "\n"))

	border := lipgloss.NewStyle().
		Foreground(m.theme.BorderColor).
		Render(strings.TrimRight(strings.Repeat("│\n", height), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, pane, border)
}

// renderThreadRows renders the directory entries, two lines per
// thread, scrolled to keep the cursor visible.
func (m Model) renderThreadRows(width, height int) []string {
	rowsVisible := height / 2
	if rowsVisible < 1 {
		rowsVisible = 1
	}
	offset := 0
	if m.threadCursor >= offset+rowsVisible {
		offset = m.threadCursor - rowsVisible + 1
	}

	nameStyle := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	pinStyle := lipgloss.NewStyle().Foreground(m.theme.PinnedIndicator)
	unreadStyle := lipgloss.NewStyle().Foreground(m.theme.UnreadIndicator)
	selectedStyle := lipgloss.NewStyle().
		Foreground(m.theme.SelectedForeground).
		Background(m.theme.SelectedBackground)

	var lines []string
	for index := offset; index < len(m.threads) && index < offset+rowsVisible; index++ {
		thread := m.threads[index]

		marker := "  "
		if thread.Pinned {
			marker = pinStyle.Render("★ ")
		} else if !thread.LastMessage.Read && thread.LastMessage.Content != "" {
			marker = unreadStyle.Render("● ")
		}

		name := thread.User.DisplayName
		if name == "" {
			name = thread.ID.String()
		}
		nameLine := marker + nameStyle.Render(ansi.Truncate(name, width-4, "…"))
		if index == m.threadCursor {
			nameLine = selectedStyle.Render(ansi.Truncate("▸ "+name, width, "…"))
		}

		preview := thread.LastMessage.Content
		if preview == "" {
			preview = "no messages yet"
		}
		previewLine := "  " + faint.Render(ansi.Truncate(preview, width-2, "…"))

		lines = append(lines, nameLine, previewLine)
	}
	return lines
}

// renderSearchRows renders the combined candidate list: matched
// threads first, then remote directory users.
func (m Model) renderSearchRows(width, height int) []string {
	candidates := m.searchCandidates()

	nameStyle := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	matchStyle := lipgloss.NewStyle().Foreground(m.theme.SearchMatchText)
	remoteStyle := lipgloss.NewStyle().Foreground(m.theme.DirectoryResult)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	selectedStyle := lipgloss.NewStyle().
		Foreground(m.theme.SelectedForeground).
		Background(m.theme.SelectedBackground)

	offset := 0
	if m.searchCursor >= height {
		offset = m.searchCursor - height + 1
	}

	var lines []string
	remoteLabelDone := false
	for index := offset; index < len(candidates) && len(lines) < height; index++ {
		candidate := candidates[index]

		if !candidate.isThread && !remoteLabelDone && index == firstRemoteIndex(candidates) {
			lines = append(lines, faint.Render("— directory —"))
			remoteLabelDone = true
			if len(lines) >= height {
				break
			}
		}

		var row string
		switch {
		case index == m.searchCursor && candidate.isThread:
			row = selectedStyle.Render(ansi.Truncate("▸ "+displayName(candidate), width, "…"))
		case index == m.searchCursor:
			row = selectedStyle.Render(ansi.Truncate("▸ "+displayName(candidate)+"  ("+candidate.user.ID.String()+")", width, "…"))
		case candidate.isThread:
			row = "  " + highlightRunes(displayName(candidate), candidate.positions, nameStyle, matchStyle)
		default:
			row = "  " + remoteStyle.Render(displayName(candidate)) +
				faint.Render("  ("+candidate.user.ID.String()+")")
		}
		lines = append(lines, ansi.Truncate(row, width, "…"))
	}

	if len(candidates) == 0 {
		if m.searchPending {
			lines = append(lines, faint.Render("searching…"))
		} else {
			lines = append(lines, faint.Render("no matches"))
		}
	}
	return lines
}

func displayName(candidate searchCandidate) string {
	if candidate.isThread {
		name := candidate.thread.User.DisplayName
		if name == "" {
			name = candidate.thread.ID.String()
		}
		return name
	}
	return candidate.user.DisplayName
}

func firstRemoteIndex(candidates []searchCandidate) int {
	for index, candidate := range candidates {
		if !candidate.isThread {
			return index
		}
	}
	return -1
}

// highlightRunes styles the matched rune positions of name.
func highlightRunes(name string, positions []int, base, match lipgloss.Style) string {
	if len(positions) == 0 {
		return base.Render(name)
	}
	matched := make(map[int]bool, len(positions))
	for _, position := range positions {
		matched[position] = true
	}
	var out strings.Builder
	for index, r := range []rune(name) {
		if matched[index] {
			out.WriteString(match.Render(string(r)))
		} else {
			out.WriteString(base.Render(string(r)))
		}
	}
	return out.String()
}
