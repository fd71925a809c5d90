// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

// MessageService is the per-thread slice of the backend: history,
// sends, and binary object fetches. *chatapi.Session satisfies it.
type MessageService interface {
	Messages(ctx context.Context, counterpartID ref.UserID) ([]chatapi.Message, error)
	Send(ctx context.Context, counterpartID ref.UserID, request chatapi.SendRequest) (chatapi.Message, error)
	FetchAttachment(ctx context.Context, objectPath ref.AttachmentPath) (chatapi.Object, error)
}

// ThreadViewConfig holds configuration for creating a ThreadView.
type ThreadViewConfig struct {
	// Service provides history, sends, and object fetches.
	Service MessageService
	// SelfID is the signed-in account.
	SelfID ref.UserID
	// CounterpartID is the other party of this thread.
	CounterpartID ref.UserID
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
	// Now overrides the clock for tests. If nil, time.Now is used.
	Now func() time.Time
}

// ThreadView owns the message list of one selected thread: it loads
// history, resolves image attachments to displayable handles, appends
// optimistic pending messages, and reconciles them in place when the
// server acknowledges the send. The view owns a BlobStore for every
// handle it creates and must be torn down with Release when the
// thread is deselected.
//
// ThreadView is safe for concurrent use: the TUI runs Load,
// ResolveImages, and Download in command goroutines while the update
// loop submits and reconciles. Version increments once per mutation
// batch so the renderer can scroll to the newest message exactly once
// per batch.
type ThreadView struct {
	service       MessageService
	selfID        ref.UserID
	counterpartID ref.UserID
	logger        *slog.Logger
	now           func() time.Time

	mu       sync.Mutex
	messages []Message
	blobs    *BlobStore
	version  uint64
	sequence uint64
}

// NewThreadView creates a view for one thread. Call Load to fetch
// history.
func NewThreadView(config ThreadViewConfig) (*ThreadView, error) {
	if config.Service == nil {
		return nil, &PreconditionError{Reason: "please sign in"}
	}
	if config.SelfID.IsZero() || config.CounterpartID.IsZero() {
		return nil, fmt.Errorf("dm: thread view requires both participant IDs")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &ThreadView{
		service:       config.Service,
		selfID:        config.SelfID,
		counterpartID: config.CounterpartID,
		logger:        logger,
		now:           now,
		blobs:         NewBlobStore(),
	}, nil
}

// Counterpart returns the other party's account ID.
func (v *ThreadView) Counterpart() ref.UserID {
	return v.counterpartID
}

// Version increments once per mutation batch. Renderers scroll to the
// newest message when it changes.
func (v *ThreadView) Version() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version
}

// Messages returns the current message list in render order. The
// AttachmentRef values are copied too, so a renderer holding the
// snapshot never observes a concurrent resolution writing the handle.
func (v *ThreadView) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	messages := make([]Message, len(v.messages))
	copy(messages, v.messages)
	for index := range messages {
		switch attachment := messages[index].Attachment.(type) {
		case *RemoteAttachment:
			snapshot := *attachment
			messages[index].Attachment = &snapshot
		case *LocalAttachment:
			snapshot := *attachment
			messages[index].Attachment = &snapshot
		}
	}
	return messages
}

// Load fetches the thread history. On failure the thread renders as
// empty rather than as an error page: the list is cleared and a
// TransportError is returned for the log.
func (v *ThreadView) Load(ctx context.Context) error {
	history, err := v.service.Messages(ctx, v.counterpartID)
	if err != nil {
		v.logger.Warn("history load failed, rendering empty thread",
			"counterpart", v.counterpartID,
			"error", err,
		)
		v.mu.Lock()
		v.messages = nil
		v.version++
		v.mu.Unlock()
		return &TransportError{Op: "load history", Err: err}
	}

	messages := make([]Message, 0, len(history))
	for _, confirmed := range history {
		messages = append(messages, confirmedMessage(confirmed))
	}
	v.mu.Lock()
	v.messages = messages
	v.version++
	v.mu.Unlock()
	return nil
}

// confirmedMessage converts a server message into a view entry,
// classifying any attachment path as image or file.
func confirmedMessage(message chatapi.Message) Message {
	entry := Message{
		ID:          message.ID,
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		Content:     message.Content,
		Kind:        message.Kind,
		CreatedAt:   message.CreatedAt,
		State:       DeliveryConfirmed,
	}
	if message.Kind == chatapi.KindAttachment && !message.AttachmentPath.IsZero() {
		entry.Attachment = classifyRemote(message.AttachmentPath)
	}
	return entry
}

// ResolveImages eagerly fetches displayable handles for every
// unresolved image attachment, one concurrent fetch per message. A
// failed fetch marks that one attachment as a placeholder; it never
// blocks the rest of the thread. Non-image attachments stay
// unresolved until the user confirms a download.
func (v *ThreadView) ResolveImages(ctx context.Context) {
	v.mu.Lock()
	var pending []*RemoteAttachment
	var pendingIDs []string
	for index := range v.messages {
		remote, ok := v.messages[index].Attachment.(*RemoteAttachment)
		if !ok || !remote.Image || remote.Handle != nil || remote.Placeholder {
			continue
		}
		pending = append(pending, remote)
		pendingIDs = append(pendingIDs, v.messages[index].ID)
	}
	v.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	var group sync.WaitGroup
	for index := range pending {
		group.Add(1)
		go func(remote *RemoteAttachment, messageID string) {
			defer group.Done()
			handle, err := v.resolve(ctx, messageID, remote)
			v.mu.Lock()
			defer v.mu.Unlock()
			if err != nil {
				v.logger.Warn("image attachment unresolved, using placeholder",
					"message_id", messageID,
					"path", remote.Path,
					"error", err,
				)
				remote.Placeholder = true
				return
			}
			remote.Handle = handle
		}(pending[index], pendingIDs[index])
	}
	group.Wait()
	v.mu.Lock()
	v.version++
	v.mu.Unlock()
}

// resolve fetches a remote attachment through the blob store, so
// repeated resolutions of the same message hit the cache.
func (v *ThreadView) resolve(ctx context.Context, messageID string, remote *RemoteAttachment) (*BlobHandle, error) {
	handle, err := v.blobs.Resolve(messageID, remote.DisplayName(), func() (string, []byte, error) {
		object, err := v.service.FetchAttachment(ctx, remote.Path)
		if err != nil {
			return "", nil, err
		}
		return object.ContentType, object.Data, nil
	})
	if err != nil {
		return nil, &ResourceError{MessageID: messageID, Err: err}
	}
	return handle, nil
}

// Submit appends an optimistic pending message for the given
// submission and returns it. The append is synchronous — the pending
// entry is visible before any network response. Attachment content is
// staged in the blob store under the correlation ID so the view can
// render it immediately.
func (v *ThreadView) Submit(submission Submission) Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sequence++
	correlationID := fmt.Sprintf("local-%d-%d", v.now().UnixNano(), v.sequence)

	message := Message{
		ID:            correlationID,
		CorrelationID: correlationID,
		SenderID:      v.selfID,
		RecipientID:   v.counterpartID,
		Content:       submission.Content,
		Kind:          submission.Kind,
		CreatedAt:     v.now(),
		State:         DeliveryPending,
	}
	if submission.Attachment != nil {
		handle := v.blobs.Put(correlationID,
			submission.Attachment.Filename,
			submission.Attachment.ContentType,
			submission.Attachment.Data,
		)
		message.Attachment = &LocalAttachment{Handle: handle}
	}

	v.messages = append(v.messages, message)
	v.version++
	return message
}

// SendRequest builds the wire request for a pending message.
func SendRequest(submission Submission) chatapi.SendRequest {
	request := chatapi.SendRequest{
		Content: submission.Content,
		Kind:    submission.Kind,
	}
	if submission.Attachment != nil {
		request.Attachment = &chatapi.Attachment{
			Filename:    submission.Attachment.Filename,
			ContentType: submission.Attachment.ContentType,
			Data:        submission.Attachment.Data,
		}
	}
	return request
}

// Reconcile replaces the pending message with the server-confirmed
// copy, in place, matched by correlation ID. A staged local blob is
// rekeyed under the server ID and kept as the confirmed attachment's
// handle, so the rendered image never refetches. Returns false when
// no pending message matches (already reconciled or removed).
func (v *ThreadView) Reconcile(correlationID string, confirmed chatapi.Message) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for index := range v.messages {
		if v.messages[index].State != DeliveryPending || v.messages[index].CorrelationID != correlationID {
			continue
		}

		entry := confirmedMessage(confirmed)
		entry.CorrelationID = correlationID
		if remote, ok := entry.Attachment.(*RemoteAttachment); ok {
			if handle, exists := v.blobs.Get(correlationID); exists {
				v.blobs.Rekey(correlationID, entry.ID)
				remote.Handle = handle
			}
		}

		v.messages[index] = entry
		v.version++
		v.logger.Info("pending message confirmed",
			"correlation_id", correlationID,
			"message_id", confirmed.ID,
		)
		return true
	}
	return false
}

// Fail removes a pending message whose send was rejected, releasing
// any staged blob. The composer keeps the draft so the user can
// retry. Returns false when no pending message matches.
func (v *ThreadView) Fail(correlationID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for index := range v.messages {
		if v.messages[index].State != DeliveryPending || v.messages[index].CorrelationID != correlationID {
			continue
		}
		v.blobs.Release(correlationID)
		v.messages = append(v.messages[:index], v.messages[index+1:]...)
		v.version++
		return true
	}
	return false
}

// Download resolves the attachment of one message for saving, used by
// the download gate after the user confirms. Cached content (an
// already-rendered image, a repeated download) is returned without a
// second fetch. Failure yields a ResourceError for a user-facing
// alert; the gate stays closed.
func (v *ThreadView) Download(ctx context.Context, messageID string) (*BlobHandle, error) {
	v.mu.Lock()
	var remote *RemoteAttachment
	found := false
	for index := range v.messages {
		if v.messages[index].ID != messageID {
			continue
		}
		found = true
		switch attachment := v.messages[index].Attachment.(type) {
		case *LocalAttachment:
			v.mu.Unlock()
			return attachment.Handle, nil
		case *RemoteAttachment:
			remote = attachment
		}
		break
	}
	v.mu.Unlock()

	if !found {
		return nil, fmt.Errorf("dm: no message %s in thread", messageID)
	}
	if remote == nil {
		return nil, fmt.Errorf("dm: message %s has no attachment", messageID)
	}

	handle, err := v.resolve(ctx, messageID, remote)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	remote.Handle = handle
	v.mu.Unlock()
	return handle, nil
}

// Release revokes every blob handle the view created. Must be called
// when the thread is deselected or the program exits.
func (v *ThreadView) Release() {
	v.blobs.ReleaseAll()
}

// BlobCount returns the number of live blob handles, for leak checks
// and status display.
func (v *ThreadView) BlobCount() int {
	return v.blobs.Len()
}
