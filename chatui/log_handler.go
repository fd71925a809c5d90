// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logNoticeMsg delivers a slog record to the model for display as a
// transient status notice.
type logNoticeMsg struct {
	Summary string
	Level   slog.Level
}

// ProgramLogHandler is a slog.Handler that routes log records into a
// running bubbletea program as messages, so degradation warnings from
// the dm layer surface in the status bar instead of corrupting the
// alternate screen. Records below the configured level are dropped, as
// are records arriving before SetProgram.
//
// Handlers derived via WithAttrs/WithGroup share the same program
// pointer; one SetProgram call covers all of them.
type ProgramLogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
}

// NewProgramLogHandler creates a handler delivering records at or
// above level. Call SetProgram once the tea.Program exists.
func NewProgramLogHandler(level slog.Level) *ProgramLogHandler {
	return &ProgramLogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram sets the receiving program. Safe from any goroutine.
func (handler *ProgramLogHandler) SetProgram(program *tea.Program) {
	handler.program.Store(program)
}

func (handler *ProgramLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as a one-line summary and sends it to the
// program.
func (handler *ProgramLogHandler) Handle(_ context.Context, record slog.Record) error {
	program := handler.program.Load()
	if program == nil {
		return nil
	}

	var parts []string
	for _, attr := range handler.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	program.Send(logNoticeMsg{Summary: summary, Level: record.Level})
	return nil
}

func (handler *ProgramLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(handler.attrs)+len(attrs))
	merged = append(merged, handler.attrs...)
	merged = append(merged, attrs...)
	return &ProgramLogHandler{
		level:   handler.level,
		program: handler.program,
		attrs:   merged,
	}
}

func (handler *ProgramLogHandler) WithGroup(string) slog.Handler {
	// Groups are not rendered in the one-line summary.
	return handler
}
