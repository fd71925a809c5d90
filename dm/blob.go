// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"
)

// BlobHandle is a displayable, revocable reference to attachment
// content held in memory. Handles are owned by the BlobStore that
// created them; after release the content is gone and Bytes returns
// nil.
type BlobHandle struct {
	mu          sync.Mutex
	filename    string
	contentType string
	data        []byte
	digest      [32]byte
}

// Filename returns the client-side file name of the content.
func (h *BlobHandle) Filename() string {
	return h.filename
}

// ContentType returns the MIME type of the content.
func (h *BlobHandle) ContentType() string {
	return h.contentType
}

// Bytes returns the content, or nil after the handle has been
// released.
func (h *BlobHandle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// Size returns the content length in bytes (zero after release).
func (h *BlobHandle) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.data)
}

// Digest returns the hex-encoded BLAKE3 digest of the content. The
// digest survives release, so two resolutions of the same remote
// object can be compared for content identity.
func (h *BlobHandle) Digest() string {
	return hex.EncodeToString(h.digest[:])
}

// Released reports whether the handle's content has been revoked.
func (h *BlobHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data == nil
}

func (h *BlobHandle) release() {
	h.mu.Lock()
	h.data = nil
	h.mu.Unlock()
}

// BlobStore owns the blob handles of one thread view, keyed by
// message ID. Resolution is idempotent within the store's lifetime: a
// second Resolve for the same message ID returns the cached handle
// without invoking the fetch. The store must be torn down with
// ReleaseAll when the thread view is discarded.
type BlobStore struct {
	mu      sync.Mutex
	handles map[string]*BlobHandle
}

// NewBlobStore creates an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{handles: make(map[string]*BlobHandle)}
}

// Put stores locally-originated content (a staged upload) under the
// given message ID and returns its handle.
func (s *BlobStore) Put(messageID, filename, contentType string, data []byte) *BlobHandle {
	handle := &BlobHandle{
		filename:    filename,
		contentType: contentType,
		data:        data,
		digest:      blake3.Sum256(data),
	}

	s.mu.Lock()
	s.handles[messageID] = handle
	s.mu.Unlock()
	return handle
}

// Resolve returns the handle for the given message ID, invoking fetch
// only when no handle is cached yet. The fetch result is stored under
// the message ID so repeated resolutions hit the cache.
func (s *BlobStore) Resolve(messageID, filename string, fetch func() (contentType string, data []byte, err error)) (*BlobHandle, error) {
	s.mu.Lock()
	if handle, ok := s.handles[messageID]; ok {
		s.mu.Unlock()
		return handle, nil
	}
	s.mu.Unlock()

	contentType, data, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("resolving blob for message %s: %w", messageID, err)
	}

	handle := &BlobHandle{
		filename:    filename,
		contentType: contentType,
		data:        data,
		digest:      blake3.Sum256(data),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent Resolve may have won the race; keep the first
	// handle so callers holding it stay valid.
	if existing, ok := s.handles[messageID]; ok {
		return existing, nil
	}
	s.handles[messageID] = handle
	return handle, nil
}

// Get returns the cached handle for a message ID, if any.
func (s *BlobStore) Get(messageID string) (*BlobHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.handles[messageID]
	return handle, ok
}

// Rekey moves a handle from one message ID to another. Used when a
// pending message is reconciled with its server-confirmed copy: the
// staged blob keeps serving the rendered view under the server ID.
func (s *BlobStore) Rekey(oldID, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle, ok := s.handles[oldID]; ok {
		delete(s.handles, oldID)
		s.handles[newID] = handle
	}
}

// Release revokes and forgets the handle for one message ID.
func (s *BlobStore) Release(messageID string) {
	s.mu.Lock()
	handle, ok := s.handles[messageID]
	delete(s.handles, messageID)
	s.mu.Unlock()
	if ok {
		handle.release()
	}
}

// ReleaseAll revokes every handle and empties the store. Called when
// the owning thread view is deselected or the program exits.
func (s *BlobStore) ReleaseAll() {
	s.mu.Lock()
	handles := s.handles
	s.handles = make(map[string]*BlobHandle)
	s.mu.Unlock()

	for _, handle := range handles {
		handle.release()
	}
}

// Len returns the number of live handles.
func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
