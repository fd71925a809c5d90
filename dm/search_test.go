// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"context"
	"errors"
	"testing"

	"github.com/maru-commerce/maru-chat/chatapi"
)

func TestSearchStaleResponseDiscarded(t *testing.T) {
	service := &fakeService{
		searchUsers: func(ctx context.Context, query string) ([]chatapi.User, error) {
			return []chatapi.User{
				{ID: mustUserID(t, "KH500"), DisplayName: "match for " + query},
			}, nil
		},
	}
	search := NewSearch(service)

	older, err := search.Dispatch(context.Background(), "ki")
	if err != nil {
		t.Fatalf("first Dispatch failed: %v", err)
	}
	newer, err := search.Dispatch(context.Background(), "kim")
	if err != nil {
		t.Fatalf("second Dispatch failed: %v", err)
	}

	// The older dispatch resolving late must not overwrite the newer
	// one, regardless of arrival order.
	if search.Current(older) {
		t.Error("stale result reported as current")
	}
	if !search.Current(newer) {
		t.Error("latest result reported as stale")
	}
	if newer.Sequence <= older.Sequence {
		t.Errorf("sequence not monotonic: %d then %d", older.Sequence, newer.Sequence)
	}
}

func TestSearchFailureStillRetires(t *testing.T) {
	service := &fakeService{
		searchUsers: func(ctx context.Context, query string) ([]chatapi.User, error) {
			return nil, errors.New("backend down")
		},
	}
	search := NewSearch(service)

	result, err := search.Dispatch(context.Background(), "kim")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Dispatch error = %v, want *TransportError", err)
	}
	// The failed dispatch still carries its sequence so the UI can
	// clear its spinner for the right query.
	if result.Sequence == 0 {
		t.Error("failed dispatch has no sequence")
	}
	if !search.Current(result) {
		t.Error("failed dispatch not current")
	}
}

func TestSearchResults(t *testing.T) {
	service := &fakeService{
		searchUsers: func(ctx context.Context, query string) ([]chatapi.User, error) {
			if query != "dahyun" {
				t.Errorf("unexpected query: %q", query)
			}
			return []chatapi.User{
				{ID: mustUserID(t, "KH310"), DisplayName: "Kim Dahyun"},
			}, nil
		},
	}
	search := NewSearch(service)

	result, err := search.Dispatch(context.Background(), "dahyun")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(result.Users) != 1 || result.Users[0].ID != mustUserID(t, "KH310") {
		t.Errorf("unexpected users: %+v", result.Users)
	}
	if result.Query != "dahyun" {
		t.Errorf("result query = %q", result.Query)
	}
}
