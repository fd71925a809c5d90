// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"time"

	"github.com/maru-commerce/maru-chat/lib/ref"
)

// User is a directory entry for a Maru account.
type User struct {
	ID          ref.UserID `json:"id"`
	DisplayName string     `json:"display_name"`
	AvatarPath  string     `json:"avatar_path,omitempty"`
}

// LastMessage summarizes the most recent message of a conversation,
// as returned by the thread list service.
type LastMessage struct {
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
	Read    bool      `json:"read"`
}

// ThreadSummary is one entry from the thread list service: a prior
// conversation partner and the last message exchanged.
type ThreadSummary struct {
	CounterpartID ref.UserID  `json:"counterpart_id"`
	LastMessage   LastMessage `json:"last_message"`
}

// MessageKind discriminates the three content shapes a message can carry.
type MessageKind string

const (
	// KindText is a plain text message body.
	KindText MessageKind = "text"
	// KindEmoji is a single reaction emoji from the fixed palette.
	KindEmoji MessageKind = "emoji"
	// KindAttachment is a file or image; Content may be empty and
	// AttachmentPath is set.
	KindAttachment MessageKind = "attachment"
)

// Message is a server-confirmed message between two accounts. The
// server assigns the ID and, for attachments, the server-relative
// object path.
type Message struct {
	ID             string             `json:"id"`
	SenderID       ref.UserID         `json:"sender_id"`
	RecipientID    ref.UserID         `json:"recipient_id"`
	Content        string             `json:"content"`
	Kind           MessageKind        `json:"kind"`
	AttachmentPath ref.AttachmentPath `json:"attachment_path,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Attachment is an outgoing file staged for upload alongside a send.
type Attachment struct {
	// Filename is the client-side name of the file; the server
	// prepends a disambiguating prefix before storing.
	Filename string
	// ContentType is the MIME type (e.g., "image/png").
	ContentType string
	// Data is the full file content.
	Data []byte
}

// SendRequest carries one outgoing message.
type SendRequest struct {
	Content string      `json:"content"`
	Kind    MessageKind `json:"kind"`
	// Attachment is non-nil only when Kind is KindAttachment. It is
	// uploaded as a multipart part, not JSON.
	Attachment *Attachment `json:"-"`
}

// Object is a fetched binary object: attachment or avatar content.
type Object struct {
	ContentType string
	Data        []byte
}

// IsImage reports whether the object is displayable inline.
func (o Object) IsImage() bool {
	return len(o.ContentType) >= 6 && o.ContentType[:6] == "image/"
}

// loginRequest is the request body for password login.
type loginRequest struct {
	AccountID string `json:"account_id"`
	Password  string `json:"password"`
}

// authResponse is returned by the login endpoint.
type authResponse struct {
	AccountID   ref.UserID `json:"account_id"`
	AccessToken string     `json:"access_token"`
}

// threadsResponse is returned by the thread list endpoint.
type threadsResponse struct {
	Threads []ThreadSummary `json:"threads"`
}

// messagesResponse is returned by the message history endpoint.
// Messages are ordered chronologically ascending (oldest first).
type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// searchResponse is returned by the user directory search endpoint.
type searchResponse struct {
	Users []User `json:"users"`
}
