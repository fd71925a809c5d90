// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"path"
	"strings"
	"time"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

// User is a resolved directory profile as displayed in the thread
// list. When a profile lookup fails the directory falls back to the
// raw account ID as the display name.
type User struct {
	ID          ref.UserID
	DisplayName string
	AvatarPath  string
}

// LastMessage summarizes the most recent message of a thread.
type LastMessage struct {
	Content string
	SentAt  time.Time
	Read    bool
}

// Thread is one entry in the thread directory, keyed by the
// counterpart's account ID. Exactly one thread in a directory is
// pinned (the support account) and it sorts first.
type Thread struct {
	ID          ref.UserID
	User        User
	LastMessage LastMessage
	Pinned      bool
}

// DeliveryState tracks whether a message has been acknowledged by the
// server.
type DeliveryState string

const (
	// DeliveryPending is a locally synthesized message shown before
	// the server confirms the send. Pending messages carry a
	// client-generated correlation ID instead of a server ID.
	DeliveryPending DeliveryState = "pending"
	// DeliveryConfirmed is a server-acknowledged message with a
	// server-assigned ID.
	DeliveryConfirmed DeliveryState = "confirmed"
)

// Message is one entry in a thread view's message list. Messages are
// created either from a history load (confirmed) or from an optimistic
// send (pending, later replaced in place by the confirmed copy). After
// creation only the delivery state and the attachment handle change.
type Message struct {
	// ID is the server-assigned message ID for confirmed messages and
	// equals CorrelationID while the message is pending.
	ID string
	// CorrelationID is a client-generated ID set on locally-originated
	// messages. The send acknowledgment is matched against it so the
	// pending entry is replaced rather than duplicated.
	CorrelationID string
	SenderID      ref.UserID
	RecipientID   ref.UserID
	Content       string
	Kind          chatapi.MessageKind
	// Attachment is non-nil exactly when Kind is KindAttachment.
	Attachment AttachmentRef
	CreatedAt  time.Time
	State      DeliveryState
}

// AttachmentRef is the tagged union over an attachment's location:
// either a local blob staged for upload (pending sends) or a
// server-relative path (confirmed messages). Renderers switch on the
// concrete type rather than sniffing strings.
type AttachmentRef interface {
	// DisplayName is the user-facing file name, used by the download
	// gate's confirmation prompt.
	DisplayName() string
	// IsImage reports whether the attachment renders inline.
	IsImage() bool

	attachmentRef()
}

// LocalAttachment is a not-yet-uploaded attachment backed by an
// in-memory blob handle. It exists only until the owning thread view
// is discarded or the send is confirmed.
type LocalAttachment struct {
	Handle *BlobHandle
}

func (a *LocalAttachment) DisplayName() string {
	return a.Handle.Filename()
}

func (a *LocalAttachment) IsImage() bool {
	return strings.HasPrefix(a.Handle.ContentType(), "image/")
}

func (a *LocalAttachment) attachmentRef() {}

// RemoteAttachment is a server-stored attachment addressed by its
// object path. Image attachments are resolved eagerly on history load;
// files only when the user confirms a download. Handle is nil until
// resolution; Placeholder is set when resolution failed and the
// renderer should substitute a placeholder.
type RemoteAttachment struct {
	Path        ref.AttachmentPath
	Image       bool
	Handle      *BlobHandle
	Placeholder bool
}

// DisplayName derives the user-facing file name from the trailing
// path segment: the server's disambiguating prefix is stripped up to
// the last underscore, or, when there is no underscore, up to the
// last dot.
func (a *RemoteAttachment) DisplayName() string {
	base := a.Path.Base()
	if index := strings.LastIndexByte(base, '_'); index >= 0 {
		return base[index+1:]
	}
	if index := strings.LastIndexByte(base, '.'); index >= 0 {
		return base[index+1:]
	}
	return base
}

func (a *RemoteAttachment) IsImage() bool {
	return a.Image
}

func (a *RemoteAttachment) attachmentRef() {}

// imageExtensions are the object-path suffixes treated as inline
// images. Classification happens once, at message construction; every
// later decision switches on the resulting tag.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// classifyRemote builds the RemoteAttachment for a server message's
// object path, tagging it as image or file by extension.
func classifyRemote(objectPath ref.AttachmentPath) *RemoteAttachment {
	extension := strings.ToLower(path.Ext(objectPath.Base()))
	return &RemoteAttachment{
		Path:  objectPath,
		Image: imageExtensions[extension],
	}
}
