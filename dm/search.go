// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"context"
	"sync"
	"time"

	"github.com/maru-commerce/maru-chat/chatapi"
)

// SearchDebounce is the quiet period after the last keystroke before
// a directory search is dispatched.
const SearchDebounce = 300 * time.Millisecond

// UserSearcher is the directory-search slice of the backend.
// *chatapi.Session satisfies it.
type UserSearcher interface {
	SearchUsers(ctx context.Context, query string) ([]chatapi.User, error)
}

// SearchResult is one completed directory search, tagged with the
// sequence number of its dispatch.
type SearchResult struct {
	Sequence uint64
	Query    string
	Users    []chatapi.User
}

// Search runs sequence-tagged directory searches. Every dispatch gets
// a monotonically increasing sequence number; a result is applied only
// when its sequence is still the latest issued, so a slow older query
// can never overwrite a newer one.
type Search struct {
	users UserSearcher

	mu     sync.Mutex
	issued uint64
}

// NewSearch creates a Search over the given directory service.
func NewSearch(users UserSearcher) *Search {
	return &Search{users: users}
}

// Dispatch issues the query and returns its tagged result. On failure
// the result carries the sequence with no users so the caller can
// still retire the dispatch.
func (s *Search) Dispatch(ctx context.Context, query string) (SearchResult, error) {
	s.mu.Lock()
	s.issued++
	sequence := s.issued
	s.mu.Unlock()

	users, err := s.users.SearchUsers(ctx, query)
	if err != nil {
		return SearchResult{Sequence: sequence, Query: query}, &TransportError{Op: "search users", Err: err}
	}
	return SearchResult{Sequence: sequence, Query: query, Users: users}, nil
}

// Current reports whether the result belongs to the latest dispatch.
// Stale results must be discarded, not rendered.
func (s *Search) Current(result SearchResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return result.Sequence == s.issued
}
