// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"fmt"
	"unicode/utf8"

	"github.com/maru-commerce/maru-chat/chatapi"
)

const (
	// MaxTextRunes is the upper bound on message text length.
	MaxTextRunes = 1000
	// MaxAttachmentBytes is the upper bound on attachment size.
	// Exactly this size is accepted; one byte over is rejected before
	// any network call.
	MaxAttachmentBytes = 10 << 20
	// HeartEmoji is the one-tap reaction sent when the composer is
	// empty.
	HeartEmoji = "❤️"
)

// ReactionPalette is the fixed set of reaction emoji a composer may
// submit. Kind emoji messages always carry one of these values.
var ReactionPalette = []string{"❤️", "😂", "😮", "😢", "👍", "👎"}

// StagedAttachment is a file selected for the next submission, held
// in memory until the send or a reset.
type StagedAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Submission is one outgoing unit of content emitted by the composer.
// Exactly one submission is produced per user action.
type Submission struct {
	Kind       chatapi.MessageKind
	Content    string
	Attachment *StagedAttachment
}

// Composer captures one outgoing message: typed text, a reaction from
// the fixed palette, or a single staged attachment. All validation
// happens locally; an invalid input yields a field-level
// ValidationError and no submission.
type Composer struct {
	text       string
	attachment *StagedAttachment
}

// NewComposer creates an empty composer.
func NewComposer() *Composer {
	return &Composer{}
}

// SetText replaces the draft text. No validation happens here; limits
// are enforced on Submit so the user can edit freely.
func (c *Composer) SetText(text string) {
	c.text = text
}

// Text returns the current draft text.
func (c *Composer) Text() string {
	return c.text
}

// Stage validates and stages an attachment for the next submission,
// replacing any previously staged one. An oversize file is rejected
// with a field-level error before any network call.
func (c *Composer) Stage(attachment StagedAttachment) error {
	if len(attachment.Data) > MaxAttachmentBytes {
		return &ValidationError{
			Field:  "attachment",
			Reason: fmt.Sprintf("file is %d bytes, the limit is 10 MiB", len(attachment.Data)),
		}
	}
	c.attachment = &attachment
	return nil
}

// Attachment returns the currently staged attachment, if any.
func (c *Composer) Attachment() *StagedAttachment {
	return c.attachment
}

// Unstage discards the staged attachment.
func (c *Composer) Unstage() {
	c.attachment = nil
}

// HeartShortcut reports whether the primary action currently submits
// the heart reaction: true when there is neither draft text nor a
// staged attachment.
func (c *Composer) HeartShortcut() bool {
	return c.text == "" && c.attachment == nil
}

// Submit emits the submission for the primary action. With a staged
// attachment it submits an attachment message carrying the draft text
// as caption; with text only it submits a text message; with nothing
// it submits the heart reaction. The composer state is left intact —
// call Reset after the send succeeds so a failure keeps the draft.
func (c *Composer) Submit() (Submission, error) {
	if utf8.RuneCountInString(c.text) > MaxTextRunes {
		return Submission{}, &ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("message is %d characters, the limit is %d", utf8.RuneCountInString(c.text), MaxTextRunes),
		}
	}

	if c.attachment != nil {
		return Submission{
			Kind:       chatapi.KindAttachment,
			Content:    c.text,
			Attachment: c.attachment,
		}, nil
	}
	if c.text != "" {
		return Submission{Kind: chatapi.KindText, Content: c.text}, nil
	}
	return Submission{Kind: chatapi.KindEmoji, Content: HeartEmoji}, nil
}

// SubmitReaction emits a reaction submission for one palette entry.
// Values outside the palette are rejected.
func (c *Composer) SubmitReaction(emoji string) (Submission, error) {
	for _, candidate := range ReactionPalette {
		if candidate == emoji {
			return Submission{Kind: chatapi.KindEmoji, Content: emoji}, nil
		}
	}
	return Submission{}, &ValidationError{
		Field:  "reaction",
		Reason: fmt.Sprintf("%q is not in the reaction palette", emoji),
	}
}

// Reset clears the draft text and any staged attachment. Called after
// a successful submission.
func (c *Composer) Reset() {
	c.text = ""
	c.attachment = nil
}
