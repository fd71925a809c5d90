// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeRunes(editor *editorModel, text string) {
	for _, r := range text {
		editor.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestEditorInsertAndValue(t *testing.T) {
	editor := newEditorModel()
	typeRunes(&editor, "hello")
	if editor.Value() != "hello" {
		t.Errorf("Value = %q, want %q", editor.Value(), "hello")
	}
	if editor.Empty() {
		t.Error("editor with content reports Empty")
	}
}

func TestEditorNewlineSplitsAtCursor(t *testing.T) {
	editor := newEditorModel()
	typeRunes(&editor, "hello")
	editor.Update(tea.KeyMsg{Type: tea.KeyLeft})
	editor.Update(tea.KeyMsg{Type: tea.KeyLeft})
	editor.InsertNewline()
	if editor.Value() != "hel\nlo" {
		t.Errorf("Value = %q, want %q", editor.Value(), "hel\nlo")
	}
}

func TestEditorBackspaceMergesLines(t *testing.T) {
	editor := newEditorModel()
	typeRunes(&editor, "ab")
	editor.InsertNewline()
	typeRunes(&editor, "cd")
	editor.Update(tea.KeyMsg{Type: tea.KeyHome})
	editor.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if editor.Value() != "abcd" {
		t.Errorf("Value = %q, want %q", editor.Value(), "abcd")
	}
}

func TestEditorSetValueAndReset(t *testing.T) {
	editor := newEditorModel()
	editor.SetValue("line one\nline two")
	if editor.Value() != "line one\nline two" {
		t.Errorf("Value = %q", editor.Value())
	}
	// Cursor lands at the end so typing continues the draft.
	typeRunes(&editor, "!")
	if editor.Value() != "line one\nline two!" {
		t.Errorf("Value after typing = %q", editor.Value())
	}

	editor.Reset()
	if !editor.Empty() || editor.Value() != "" {
		t.Errorf("editor not empty after Reset: %q", editor.Value())
	}
}
