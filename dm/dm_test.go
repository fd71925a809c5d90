// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

func mustUserID(t *testing.T, raw string) ref.UserID {
	t.Helper()
	userID, err := ref.ParseUserID(raw)
	if err != nil {
		t.Fatalf("ParseUserID(%q) failed: %v", raw, err)
	}
	return userID
}

func mustPath(t *testing.T, raw string) ref.AttachmentPath {
	t.Helper()
	path, err := ref.ParseAttachmentPath(raw)
	if err != nil {
		t.Fatalf("ParseAttachmentPath(%q) failed: %v", raw, err)
	}
	return path
}

// fakeService is an in-memory stand-in for *chatapi.Session. Handlers
// default to empty success; tests override the ones they exercise.
// Call counters are atomic because directory builds and image
// resolution fan out concurrently.
type fakeService struct {
	listThreads func(ctx context.Context) ([]chatapi.ThreadSummary, error)
	lookupUser  func(ctx context.Context, userID ref.UserID) (chatapi.User, error)
	searchUsers func(ctx context.Context, query string) ([]chatapi.User, error)
	messages    func(ctx context.Context, counterpartID ref.UserID) ([]chatapi.Message, error)
	send        func(ctx context.Context, counterpartID ref.UserID, request chatapi.SendRequest) (chatapi.Message, error)
	fetch       func(ctx context.Context, objectPath ref.AttachmentPath) (chatapi.Object, error)

	lookupCalls atomic.Int64
	fetchCalls  atomic.Int64
	sendCalls   atomic.Int64
}

func (s *fakeService) ListThreads(ctx context.Context) ([]chatapi.ThreadSummary, error) {
	if s.listThreads == nil {
		return nil, nil
	}
	return s.listThreads(ctx)
}

func (s *fakeService) LookupUser(ctx context.Context, userID ref.UserID) (chatapi.User, error) {
	s.lookupCalls.Add(1)
	if s.lookupUser == nil {
		return chatapi.User{ID: userID, DisplayName: userID.String()}, nil
	}
	return s.lookupUser(ctx, userID)
}

func (s *fakeService) SearchUsers(ctx context.Context, query string) ([]chatapi.User, error) {
	if s.searchUsers == nil {
		return nil, nil
	}
	return s.searchUsers(ctx, query)
}

func (s *fakeService) Messages(ctx context.Context, counterpartID ref.UserID) ([]chatapi.Message, error) {
	if s.messages == nil {
		return nil, nil
	}
	return s.messages(ctx, counterpartID)
}

func (s *fakeService) Send(ctx context.Context, counterpartID ref.UserID, request chatapi.SendRequest) (chatapi.Message, error) {
	s.sendCalls.Add(1)
	if s.send == nil {
		return chatapi.Message{}, fmt.Errorf("send not configured")
	}
	return s.send(ctx, counterpartID, request)
}

func (s *fakeService) FetchAttachment(ctx context.Context, objectPath ref.AttachmentPath) (chatapi.Object, error) {
	s.fetchCalls.Add(1)
	if s.fetch == nil {
		return chatapi.Object{}, fmt.Errorf("fetch not configured")
	}
	return s.fetch(ctx, objectPath)
}

func newTestDirectory(t *testing.T, service *fakeService) *Directory {
	t.Helper()
	directory, err := NewDirectory(DirectoryConfig{
		Service:   service,
		SelfID:    mustUserID(t, "KH001"),
		SupportID: mustUserID(t, "AD00012"),
	})
	if err != nil {
		t.Fatalf("NewDirectory failed: %v", err)
	}
	return directory
}

func newTestThreadView(t *testing.T, service *fakeService, counterpart string) *ThreadView {
	t.Helper()
	view, err := NewThreadView(ThreadViewConfig{
		Service:       service,
		SelfID:        mustUserID(t, "KH001"),
		CounterpartID: mustUserID(t, counterpart),
		Now:           func() time.Time { return time.Unix(1700000000, 0).UTC() },
	})
	if err != nil {
		t.Fatalf("NewThreadView failed: %v", err)
	}
	return view
}
