// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

// DirectoryService is the slice of the backend the directory needs:
// the thread list and the user directory. *chatapi.Session satisfies
// it.
type DirectoryService interface {
	ListThreads(ctx context.Context) ([]chatapi.ThreadSummary, error)
	LookupUser(ctx context.Context, userID ref.UserID) (chatapi.User, error)
}

// DirectoryConfig holds configuration for creating a Directory.
type DirectoryConfig struct {
	// Service provides the thread list and profile lookups.
	Service DirectoryService
	// SelfID is the signed-in account.
	SelfID ref.UserID
	// SupportID is the always-pinned support account.
	SupportID ref.UserID
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Directory holds the ordered conversation list for the signed-in
// user. The pinned support thread is always present and first;
// everything after it keeps the insertion order of the backing fetch.
// Directory is safe for concurrent use: the TUI runs Load in a
// command goroutine while the update loop selects and promotes.
type Directory struct {
	service   DirectoryService
	selfID    ref.UserID
	supportID ref.UserID
	logger    *slog.Logger

	mu       sync.Mutex
	threads  []Thread
	selected ref.UserID
}

// NewDirectory creates an empty directory. Call Load to populate it.
func NewDirectory(config DirectoryConfig) (*Directory, error) {
	if config.Service == nil {
		return nil, &PreconditionError{Reason: "please sign in"}
	}
	if config.SelfID.IsZero() {
		return nil, fmt.Errorf("dm: directory requires a signed-in account ID")
	}
	if config.SupportID.IsZero() {
		return nil, fmt.Errorf("dm: directory requires a support account ID")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Directory{
		service:   config.Service,
		selfID:    config.SelfID,
		supportID: config.SupportID,
		logger:    logger,
	}, nil
}

// Load builds the thread list: one thread-list fetch, then one
// concurrent profile lookup per counterpart. A failed lookup degrades
// that one thread to the raw account ID and a default avatar; a
// failed thread-list fetch leaves the directory with only the
// synthesized pinned thread and returns a TransportError so the UI
// can surface a notice.
func (d *Directory) Load(ctx context.Context) error {
	summaries, listErr := d.service.ListThreads(ctx)
	if listErr != nil {
		d.logger.Warn("thread list fetch failed", "error", listErr)
		summaries = nil
	}

	resolved := make([]Thread, len(summaries))
	var group sync.WaitGroup
	for index, summary := range summaries {
		group.Add(1)
		go func(index int, summary chatapi.ThreadSummary) {
			defer group.Done()
			resolved[index] = d.resolveThread(ctx, summary)
		}(index, summary)
	}
	group.Wait()

	// Deduplicate by counterpart, keeping the first occurrence. The
	// backend should not return duplicates, but the pinned invariant
	// depends on at most one thread per counterpart.
	threads := make([]Thread, 0, len(resolved)+1)
	seen := make(map[ref.UserID]bool, len(resolved))
	pinnedPresent := false
	for _, thread := range resolved {
		if seen[thread.ID] {
			continue
		}
		seen[thread.ID] = true
		if thread.ID == d.supportID {
			thread.Pinned = true
			pinnedPresent = true
		}
		threads = append(threads, thread)
	}

	if !pinnedPresent {
		threads = append(threads, d.synthesizeSupportThread(ctx))
	}

	// Pinned thread first; all other threads keep fetch order.
	for index, thread := range threads {
		if thread.Pinned && index != 0 {
			copy(threads[1:index+1], threads[:index])
			threads[0] = thread
			break
		}
	}

	d.mu.Lock()
	d.threads = threads
	if d.selected.IsZero() {
		d.selected = threads[0].ID
	}
	d.mu.Unlock()

	if listErr != nil {
		return &TransportError{Op: "load threads", Err: listErr}
	}
	return nil
}

// resolveThread turns a thread summary into a directory entry,
// falling back to the raw counterpart ID when the profile lookup
// fails.
func (d *Directory) resolveThread(ctx context.Context, summary chatapi.ThreadSummary) Thread {
	thread := Thread{
		ID: summary.CounterpartID,
		LastMessage: LastMessage{
			Content: summary.LastMessage.Content,
			SentAt:  summary.LastMessage.SentAt,
			Read:    summary.LastMessage.Read,
		},
	}

	profile, err := d.service.LookupUser(ctx, summary.CounterpartID)
	if err != nil {
		d.logger.Warn("profile lookup failed, using raw account ID",
			"counterpart", summary.CounterpartID,
			"error", err,
		)
		thread.User = User{
			ID:          summary.CounterpartID,
			DisplayName: summary.CounterpartID.String(),
		}
		return thread
	}

	thread.User = User{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		AvatarPath:  profile.AvatarPath,
	}
	return thread
}

// synthesizeSupportThread builds the zero-message pinned thread for
// the support account when the backing fetch did not include it.
func (d *Directory) synthesizeSupportThread(ctx context.Context) Thread {
	thread := Thread{
		ID:     d.supportID,
		Pinned: true,
		User: User{
			ID:          d.supportID,
			DisplayName: d.supportID.String(),
		},
	}

	profile, err := d.service.LookupUser(ctx, d.supportID)
	if err != nil {
		d.logger.Warn("support profile lookup failed, using raw account ID",
			"support", d.supportID,
			"error", err,
		)
		return thread
	}

	thread.User = User{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		AvatarPath:  profile.AvatarPath,
	}
	return thread
}

// Threads returns the current directory entries in display order.
// The returned slice is a copy.
func (d *Directory) Threads() []Thread {
	d.mu.Lock()
	defer d.mu.Unlock()
	threads := make([]Thread, len(d.threads))
	copy(threads, d.threads)
	return threads
}

// Selected returns the counterpart ID of the currently selected
// thread (zero before the first Load).
func (d *Directory) Selected() ref.UserID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Select marks an existing thread as selected.
func (d *Directory) Select(counterpartID ref.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, thread := range d.threads {
		if thread.ID == counterpartID {
			d.selected = counterpartID
			return nil
		}
	}
	return fmt.Errorf("dm: no thread for %q", counterpartID)
}

// Promote merges a search result into the directory. If the user
// already has a thread it is selected; otherwise a new empty thread is
// inserted directly after the pinned thread and selected. The
// directory length never grows for an existing counterpart.
func (d *Directory) Promote(user chatapi.User) Thread {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, thread := range d.threads {
		if thread.ID == user.ID {
			d.selected = thread.ID
			return thread
		}
	}

	thread := Thread{
		ID: user.ID,
		User: User{
			ID:          user.ID,
			DisplayName: user.DisplayName,
			AvatarPath:  user.AvatarPath,
		},
	}

	// Insert after the pinned thread, which is always index 0 once
	// Load has run.
	position := 0
	if len(d.threads) > 0 && d.threads[0].Pinned {
		position = 1
	}
	d.threads = append(d.threads, Thread{})
	copy(d.threads[position+1:], d.threads[position:])
	d.threads[position] = thread

	d.selected = thread.ID
	d.logger.Info("thread promoted from search",
		"counterpart", user.ID,
		"display_name", user.DisplayName,
	)
	return thread
}

// Touch updates the last-message summary of an existing thread after
// a send or an incoming refresh, without re-sorting.
func (d *Directory) Touch(counterpartID ref.UserID, last LastMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for index := range d.threads {
		if d.threads[index].ID == counterpartID {
			d.threads[index].LastMessage = last
			return
		}
	}
}
