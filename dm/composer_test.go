// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package dm

import (
	"errors"
	"strings"
	"testing"

	"github.com/maru-commerce/maru-chat/chatapi"
)

func TestComposerHeartShortcut(t *testing.T) {
	composer := NewComposer()
	if !composer.HeartShortcut() {
		t.Fatal("empty composer does not offer the heart shortcut")
	}

	submission, err := composer.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submission.Kind != chatapi.KindEmoji || submission.Content != "❤️" {
		t.Errorf("heart shortcut submitted %+v", submission)
	}
}

func TestComposerTextSubmission(t *testing.T) {
	composer := NewComposer()
	composer.SetText("hello there")
	if composer.HeartShortcut() {
		t.Error("composer with text still offers the heart shortcut")
	}

	submission, err := composer.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submission.Kind != chatapi.KindText || submission.Content != "hello there" {
		t.Errorf("text submission = %+v", submission)
	}

	// Failure path keeps the draft; only Reset clears it.
	if composer.Text() != "hello there" {
		t.Errorf("Submit cleared the draft: %q", composer.Text())
	}
	composer.Reset()
	if composer.Text() != "" || composer.Attachment() != nil {
		t.Error("Reset did not clear the composer")
	}
}

func TestComposerTextLimit(t *testing.T) {
	composer := NewComposer()

	composer.SetText(strings.Repeat("가", MaxTextRunes))
	if _, err := composer.Submit(); err != nil {
		t.Errorf("text at the limit rejected: %v", err)
	}

	composer.SetText(strings.Repeat("가", MaxTextRunes+1))
	_, err := composer.Submit()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if validationErr.Field != "text" {
		t.Errorf("error field = %q, want \"text\"", validationErr.Field)
	}
	if !strings.Contains(validationErr.Reason, "1000") {
		t.Errorf("error does not name the limit: %q", validationErr.Reason)
	}
}

func TestComposerAttachmentBoundary(t *testing.T) {
	composer := NewComposer()

	// Exactly the limit is accepted.
	if err := composer.Stage(StagedAttachment{
		Filename: "exact.bin",
		Data:     make([]byte, MaxAttachmentBytes),
	}); err != nil {
		t.Errorf("attachment at the limit rejected: %v", err)
	}

	// One byte over is a field-level error, staged file unchanged.
	err := composer.Stage(StagedAttachment{
		Filename: "over.bin",
		Data:     make([]byte, MaxAttachmentBytes+1),
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if validationErr.Field != "attachment" {
		t.Errorf("error field = %q, want \"attachment\"", validationErr.Field)
	}
	if !strings.Contains(validationErr.Reason, "10 MiB") {
		t.Errorf("error does not name the limit: %q", validationErr.Reason)
	}
	if composer.Attachment().Filename != "exact.bin" {
		t.Errorf("oversize Stage replaced the staged file: %q", composer.Attachment().Filename)
	}
}

func TestComposerOversizeRejectedLocally(t *testing.T) {
	// A 12 MB file against the 10 MiB limit: rejected before any
	// message object exists.
	composer := NewComposer()
	err := composer.Stage(StagedAttachment{
		Filename: "big.mov",
		Data:     make([]byte, 12<<20),
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if composer.Attachment() != nil {
		t.Error("oversize file was staged")
	}
}

func TestComposerAttachmentSubmission(t *testing.T) {
	composer := NewComposer()
	if err := composer.Stage(StagedAttachment{
		Filename:    "photo.png",
		ContentType: "image/png",
		Data:        []byte("png bytes"),
	}); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	composer.SetText("look at this")

	submission, err := composer.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submission.Kind != chatapi.KindAttachment {
		t.Errorf("submission kind = %s, want attachment", submission.Kind)
	}
	if submission.Attachment == nil || submission.Attachment.Filename != "photo.png" {
		t.Errorf("submission attachment = %+v", submission.Attachment)
	}
	if submission.Content != "look at this" {
		t.Errorf("submission caption = %q", submission.Content)
	}
}

func TestComposerReactionPalette(t *testing.T) {
	composer := NewComposer()

	for _, emoji := range ReactionPalette {
		submission, err := composer.SubmitReaction(emoji)
		if err != nil {
			t.Errorf("palette reaction %q rejected: %v", emoji, err)
			continue
		}
		if submission.Kind != chatapi.KindEmoji || submission.Content != emoji {
			t.Errorf("reaction submission = %+v", submission)
		}
	}

	_, err := composer.SubmitReaction("🎉")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("off-palette reaction error = %v, want *ValidationError", err)
	}
}
