// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// editorModel is the multi-line text editor backing the composer
// input. It keeps a rune buffer per line with cursor tracking; the
// surrounding model decides what Enter means (submit) and routes
// alt+enter here as a line break.
type editorModel struct {
	lines   [][]rune
	cursorY int // Current line index.
	cursorX int // Cursor position within the current line.
}

func newEditorModel() editorModel {
	return editorModel{lines: [][]rune{{}}}
}

// Value returns the current text content.
func (editor editorModel) Value() string {
	var parts []string
	for _, line := range editor.lines {
		parts = append(parts, string(line))
	}
	return strings.Join(parts, "\n")
}

// Empty reports whether the editor holds no text at all.
func (editor editorModel) Empty() bool {
	return len(editor.lines) == 1 && len(editor.lines[0]) == 0
}

// SetValue replaces the buffer contents and puts the cursor at the
// end.
func (editor *editorModel) SetValue(value string) {
	parts := strings.Split(value, "\n")
	editor.lines = make([][]rune, len(parts))
	for index, part := range parts {
		editor.lines[index] = []rune(part)
	}
	editor.cursorY = len(editor.lines) - 1
	editor.cursorX = len(editor.lines[editor.cursorY])
}

// Reset clears the buffer and returns the cursor to the origin.
func (editor *editorModel) Reset() {
	editor.lines = [][]rune{{}}
	editor.cursorY = 0
	editor.cursorX = 0
}

// InsertNewline splits the current line at the cursor.
func (editor *editorModel) InsertNewline() {
	line := editor.lines[editor.cursorY]
	before := make([]rune, editor.cursorX)
	copy(before, line[:editor.cursorX])
	after := make([]rune, len(line)-editor.cursorX)
	copy(after, line[editor.cursorX:])

	editor.lines[editor.cursorY] = before
	newLines := make([][]rune, len(editor.lines)+1)
	copy(newLines, editor.lines[:editor.cursorY+1])
	newLines[editor.cursorY+1] = after
	copy(newLines[editor.cursorY+2:], editor.lines[editor.cursorY+1:])
	editor.lines = newLines
	editor.cursorY++
	editor.cursorX = 0
}

// Update processes a key message for the editor. Enter and alt+enter
// are handled by the caller, not here.
func (editor *editorModel) Update(message tea.KeyMsg) {
	switch message.Type {
	case tea.KeyRunes, tea.KeySpace:
		for _, character := range message.Runes {
			editor.insertRune(character)
		}

	case tea.KeyBackspace:
		if editor.cursorX > 0 {
			line := editor.lines[editor.cursorY]
			editor.lines[editor.cursorY] = append(line[:editor.cursorX-1], line[editor.cursorX:]...)
			editor.cursorX--
		} else if editor.cursorY > 0 {
			// Merge with previous line.
			previousLine := editor.lines[editor.cursorY-1]
			currentLine := editor.lines[editor.cursorY]
			editor.cursorX = len(previousLine)
			editor.lines[editor.cursorY-1] = append(previousLine, currentLine...)
			editor.lines = append(editor.lines[:editor.cursorY], editor.lines[editor.cursorY+1:]...)
			editor.cursorY--
		}

	case tea.KeyDelete:
		line := editor.lines[editor.cursorY]
		if editor.cursorX < len(line) {
			editor.lines[editor.cursorY] = append(line[:editor.cursorX], line[editor.cursorX+1:]...)
		} else if editor.cursorY < len(editor.lines)-1 {
			// Merge with next line.
			nextLine := editor.lines[editor.cursorY+1]
			editor.lines[editor.cursorY] = append(line, nextLine...)
			editor.lines = append(editor.lines[:editor.cursorY+1], editor.lines[editor.cursorY+2:]...)
		}

	case tea.KeyLeft:
		if editor.cursorX > 0 {
			editor.cursorX--
		} else if editor.cursorY > 0 {
			editor.cursorY--
			editor.cursorX = len(editor.lines[editor.cursorY])
		}

	case tea.KeyRight:
		line := editor.lines[editor.cursorY]
		if editor.cursorX < len(line) {
			editor.cursorX++
		} else if editor.cursorY < len(editor.lines)-1 {
			editor.cursorY++
			editor.cursorX = 0
		}

	case tea.KeyUp:
		if editor.cursorY > 0 {
			editor.cursorY--
			if editor.cursorX > len(editor.lines[editor.cursorY]) {
				editor.cursorX = len(editor.lines[editor.cursorY])
			}
		}

	case tea.KeyDown:
		if editor.cursorY < len(editor.lines)-1 {
			editor.cursorY++
			if editor.cursorX > len(editor.lines[editor.cursorY]) {
				editor.cursorX = len(editor.lines[editor.cursorY])
			}
		}

	case tea.KeyHome, tea.KeyCtrlA:
		editor.cursorX = 0

	case tea.KeyEnd, tea.KeyCtrlE:
		editor.cursorX = len(editor.lines[editor.cursorY])
	}
}

// insertRune inserts a single rune at the cursor position.
func (editor *editorModel) insertRune(character rune) {
	line := editor.lines[editor.cursorY]
	newLine := make([]rune, len(line)+1)
	copy(newLine, line[:editor.cursorX])
	newLine[editor.cursorX] = character
	copy(newLine[editor.cursorX+1:], line[editor.cursorX:])
	editor.lines[editor.cursorY] = newLine
	editor.cursorX++
}

// View renders the editor as height lines of width columns, scrolling
// vertically to keep the cursor visible. The cursor block only shows
// when focused.
func (editor editorModel) View(width, height int, focused bool, theme Theme) string {
	if height < 1 {
		height = 1
	}
	textStyle := lipgloss.NewStyle().Foreground(theme.NormalText)
	cursorStyle := lipgloss.NewStyle().Reverse(true)

	scrollOffset := 0
	if editor.cursorY >= height {
		scrollOffset = editor.cursorY - height + 1
	}

	var rendered []string
	for lineIndex := scrollOffset; lineIndex < scrollOffset+height; lineIndex++ {
		var renderedLine string
		if lineIndex < len(editor.lines) {
			line := editor.lines[lineIndex]
			if focused && lineIndex == editor.cursorY {
				if editor.cursorX >= len(line) {
					renderedLine = textStyle.Render(string(line)) + cursorStyle.Render(" ")
				} else {
					before := textStyle.Render(string(line[:editor.cursorX]))
					atCursor := cursorStyle.Render(string(line[editor.cursorX : editor.cursorX+1]))
					after := textStyle.Render(string(line[editor.cursorX+1:]))
					renderedLine = before + atCursor + after
				}
			} else {
				renderedLine = textStyle.Render(string(line))
			}
		}
		renderedLine = ansi.Truncate(renderedLine, width, "")
		rendered = append(rendered, renderedLine)
	}
	return strings.Join(rendered, "\n")
}
