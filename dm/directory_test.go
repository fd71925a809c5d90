// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

func TestDirectorySynthesizesPinnedThread(t *testing.T) {
	// No prior conversations at all: the directory still yields the
	// pinned support thread as its only entry.
	service := &fakeService{
		lookupUser: func(ctx context.Context, userID ref.UserID) (chatapi.User, error) {
			return chatapi.User{}, errors.New("not found")
		},
	}
	directory := newTestDirectory(t, service)

	if err := directory.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	threads := directory.Threads()
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1", len(threads))
	}
	if threads[0].ID.String() != "AD00012" || !threads[0].Pinned {
		t.Errorf("unexpected synthesized thread: %+v", threads[0])
	}
	if threads[0].LastMessage.Content != "" {
		t.Errorf("synthesized thread has a last message: %+v", threads[0].LastMessage)
	}
	if directory.Selected().String() != "AD00012" {
		t.Errorf("unexpected initial selection: %s", directory.Selected())
	}
}

func TestDirectoryPinnedFirst(t *testing.T) {
	// The support account appears mid-list in the fetch; it must end
	// up first, pinned, with all other threads keeping fetch order.
	service := &fakeService{
		listThreads: func(ctx context.Context) ([]chatapi.ThreadSummary, error) {
			return []chatapi.ThreadSummary{
				{CounterpartID: mustUserID(t, "KH200")},
				{CounterpartID: mustUserID(t, "AD00012")},
				{CounterpartID: mustUserID(t, "KH300")},
			}, nil
		},
	}
	directory := newTestDirectory(t, service)

	if err := directory.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	threads := directory.Threads()
	if len(threads) != 3 {
		t.Fatalf("got %d threads, want 3", len(threads))
	}
	pinnedCount := 0
	for _, thread := range threads {
		if thread.Pinned {
			pinnedCount++
		}
	}
	if pinnedCount != 1 {
		t.Errorf("got %d pinned threads, want exactly 1", pinnedCount)
	}
	if threads[0].ID.String() != "AD00012" {
		t.Errorf("pinned thread not first: %s", threads[0].ID)
	}
	if threads[1].ID.String() != "KH200" || threads[2].ID.String() != "KH300" {
		t.Errorf("non-pinned order not preserved: %s, %s", threads[1].ID, threads[2].ID)
	}
}

func TestDirectoryLookupFailureFallsBack(t *testing.T) {
	// One profile lookup fails; that thread degrades to the raw
	// account ID instead of aborting the build.
	service := &fakeService{
		listThreads: func(ctx context.Context) ([]chatapi.ThreadSummary, error) {
			return []chatapi.ThreadSummary{
				{CounterpartID: mustUserID(t, "KH200")},
				{CounterpartID: mustUserID(t, "KH300")},
			}, nil
		},
		lookupUser: func(ctx context.Context, userID ref.UserID) (chatapi.User, error) {
			if userID.String() == "KH300" {
				return chatapi.User{}, errors.New("directory timeout")
			}
			return chatapi.User{ID: userID, DisplayName: "Resolved " + userID.String()}, nil
		},
	}
	directory := newTestDirectory(t, service)

	if err := directory.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	byID := make(map[string]Thread)
	for _, thread := range directory.Threads() {
		byID[thread.ID.String()] = thread
	}
	if got := byID["KH200"].User.DisplayName; got != "Resolved KH200" {
		t.Errorf("resolved thread name = %q", got)
	}
	if got := byID["KH300"].User.DisplayName; got != "KH300" {
		t.Errorf("fallback thread name = %q, want raw account ID", got)
	}
}

func TestDirectoryListFailureYieldsPinnedOnly(t *testing.T) {
	service := &fakeService{
		listThreads: func(ctx context.Context) ([]chatapi.ThreadSummary, error) {
			return nil, errors.New("backend down")
		},
	}
	directory := newTestDirectory(t, service)

	err := directory.Load(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Load error = %v, want *TransportError", err)
	}

	threads := directory.Threads()
	if len(threads) != 1 || !threads[0].Pinned {
		t.Errorf("degraded directory = %+v, want pinned thread only", threads)
	}
}

func TestDirectoryConcurrentLookups(t *testing.T) {
	service := &fakeService{
		listThreads: func(ctx context.Context) ([]chatapi.ThreadSummary, error) {
			summaries := make([]chatapi.ThreadSummary, 8)
			for index := range summaries {
				summaries[index] = chatapi.ThreadSummary{
					CounterpartID: mustUserID(t, fmt.Sprintf("KH%d", 100+index)),
				}
			}
			return summaries, nil
		},
	}
	directory := newTestDirectory(t, service)

	if err := directory.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 8 counterparts plus the synthesized support profile.
	if got := service.lookupCalls.Load(); got != 9 {
		t.Errorf("got %d lookups, want 9", got)
	}
	if got := len(directory.Threads()); got != 9 {
		t.Errorf("got %d threads, want 9", got)
	}
}

func TestPromoteExistingThreadNoDuplicate(t *testing.T) {
	service := &fakeService{
		listThreads: func(ctx context.Context) ([]chatapi.ThreadSummary, error) {
			return []chatapi.ThreadSummary{
				{CounterpartID: mustUserID(t, "KH200")},
			}, nil
		},
	}
	directory := newTestDirectory(t, service)
	if err := directory.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	before := len(directory.Threads())
	directory.Promote(chatapi.User{ID: mustUserID(t, "KH200"), DisplayName: "Existing"})

	if got := len(directory.Threads()); got != before {
		t.Errorf("directory grew from %d to %d threads on existing promote", before, got)
	}
	if directory.Selected().String() != "KH200" {
		t.Errorf("promote did not select the thread: %s", directory.Selected())
	}
}

func TestPromoteNewThreadAfterPinned(t *testing.T) {
	service := &fakeService{
		listThreads: func(ctx context.Context) ([]chatapi.ThreadSummary, error) {
			return []chatapi.ThreadSummary{
				{CounterpartID: mustUserID(t, "KH200")},
			}, nil
		},
	}
	directory := newTestDirectory(t, service)
	if err := directory.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	directory.Promote(chatapi.User{ID: mustUserID(t, "KH900"), DisplayName: "New Contact"})

	threads := directory.Threads()
	if len(threads) != 3 {
		t.Fatalf("got %d threads, want 3", len(threads))
	}
	if !threads[0].Pinned {
		t.Errorf("pinned thread displaced: %+v", threads[0])
	}
	if threads[1].ID.String() != "KH900" {
		t.Errorf("promoted thread not directly after pinned: %s", threads[1].ID)
	}
	if directory.Selected().String() != "KH900" {
		t.Errorf("promote did not select the new thread: %s", directory.Selected())
	}
}

func TestDirectoryTouch(t *testing.T) {
	service := &fakeService{
		listThreads: func(ctx context.Context) ([]chatapi.ThreadSummary, error) {
			return []chatapi.ThreadSummary{
				{CounterpartID: mustUserID(t, "KH200")},
			}, nil
		},
	}
	directory := newTestDirectory(t, service)
	if err := directory.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sentAt := time.Unix(1700000500, 0).UTC()
	directory.Touch(mustUserID(t, "KH200"), LastMessage{Content: "updated", SentAt: sentAt, Read: true})

	for _, thread := range directory.Threads() {
		if thread.ID.String() == "KH200" {
			if thread.LastMessage.Content != "updated" || !thread.LastMessage.SentAt.Equal(sentAt) {
				t.Errorf("Touch did not update summary: %+v", thread.LastMessage)
			}
			return
		}
	}
	t.Fatal("KH200 thread missing")
}

func TestNewDirectoryWithoutSession(t *testing.T) {
	_, err := NewDirectory(DirectoryConfig{
		SelfID:    mustUserID(t, "KH001"),
		SupportID: mustUserID(t, "AD00012"),
	})
	var preconditionErr *PreconditionError
	if !errors.As(err, &preconditionErr) {
		t.Fatalf("error = %v, want *PreconditionError", err)
	}
}
