// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/maru-commerce/maru-chat/lib/ref"
)

// Session is an authenticated connection to the Maru chat backend.
// It wraps a Client with an access token. Sessions are lightweight
// and safe for concurrent use.
type Session struct {
	client      *Client
	accessToken string
	userID      ref.UserID
}

// UserID returns the account ID this session is authenticated as.
func (s *Session) UserID() ref.UserID {
	return s.userID
}

// AccessToken returns the bearer token backing this session, for
// callers that persist credentials between runs.
func (s *Session) AccessToken() string {
	return s.accessToken
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool.
func (s *Session) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}

// ListThreads returns the caller's prior conversations: one entry per
// counterpart, each with the last message exchanged. Order is the
// server's (most recent activity first); the directory layer applies
// its own pinning on top.
func (s *Session) ListThreads(ctx context.Context) ([]ThreadSummary, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/chat/threads", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("chatapi: list threads failed: %w", err)
	}

	var response threadsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("chatapi: failed to parse threads response: %w", err)
	}
	return response.Threads, nil
}

// Messages returns the full message history between the caller and
// the given counterpart, ordered chronologically ascending.
func (s *Session) Messages(ctx context.Context, counterpartID ref.UserID) ([]Message, error) {
	path := "/api/v1/chat/messages/" + url.PathEscape(counterpartID.String())
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("chatapi: messages for %q failed: %w", counterpartID, err)
	}

	var response messagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("chatapi: failed to parse messages response: %w", err)
	}
	return response.Messages, nil
}

// Send delivers one message to the counterpart and returns the
// server-confirmed copy (server-assigned ID and, for attachments, the
// stored object path). Text and emoji sends are JSON; attachment sends
// are multipart with the file content as a part.
func (s *Session) Send(ctx context.Context, counterpartID ref.UserID, request SendRequest) (Message, error) {
	path := "/api/v1/chat/messages/" + url.PathEscape(counterpartID.String())

	var body []byte
	var err error
	if request.Attachment != nil {
		body, err = s.sendMultipart(ctx, path, request)
	} else {
		body, err = s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, request)
	}
	if err != nil {
		return Message{}, fmt.Errorf("chatapi: send to %q failed: %w", counterpartID, err)
	}

	var message Message
	if err := json.Unmarshal(body, &message); err != nil {
		return Message{}, fmt.Errorf("chatapi: failed to parse send response: %w", err)
	}

	s.client.logger.Info("message sent",
		"recipient", counterpartID,
		"kind", message.Kind,
		"message_id", message.ID,
	)
	return message, nil
}

// sendMultipart encodes the send request as multipart/form-data:
// "content" and "kind" fields plus an "attachment" file part.
func (s *Session) sendMultipart(ctx context.Context, path string, request SendRequest) ([]byte, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	if err := writer.WriteField("content", request.Content); err != nil {
		return nil, fmt.Errorf("encoding content field: %w", err)
	}
	if err := writer.WriteField("kind", string(request.Kind)); err != nil {
		return nil, fmt.Errorf("encoding kind field: %w", err)
	}

	part, err := writer.CreateFormFile("attachment", request.Attachment.Filename)
	if err != nil {
		return nil, fmt.Errorf("creating attachment part: %w", err)
	}
	if _, err := part.Write(request.Attachment.Data); err != nil {
		return nil, fmt.Errorf("writing attachment part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	return s.client.doRequestUpload(ctx, http.MethodPost, path, s.accessToken,
		writer.FormDataContentType(), &buffer)
}

// SearchUsers queries the user directory with free text. Matches on
// account ID and display name; an empty result is not an error.
func (s *Session) SearchUsers(ctx context.Context, query string) ([]User, error) {
	values := url.Values{}
	values.Set("query", query)

	body, err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/users/search", s.accessToken, nil, values)
	if err != nil {
		return nil, fmt.Errorf("chatapi: user search failed: %w", err)
	}

	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("chatapi: failed to parse search response: %w", err)
	}
	return response.Users, nil
}

// LookupUser fetches a single directory profile by account ID.
// Returns a *APIError with ErrCodeNotFound if the account does not
// exist.
func (s *Session) LookupUser(ctx context.Context, userID ref.UserID) (User, error) {
	path := "/api/v1/users/" + url.PathEscape(userID.String())
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.accessToken, nil)
	if err != nil {
		return User{}, fmt.Errorf("chatapi: lookup of %q failed: %w", userID, err)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return User{}, fmt.Errorf("chatapi: failed to parse user response: %w", err)
	}
	return user, nil
}

// FetchAttachment retrieves a stored binary object (attachment or
// avatar) through the authenticated object endpoint. The full content
// is returned in memory; callers wrap it in a displayable handle.
func (s *Session) FetchAttachment(ctx context.Context, objectPath ref.AttachmentPath) (Object, error) {
	path := "/api/v1/objects/" + escapeObjectPath(objectPath.String())
	object, err := s.client.doRequestObject(ctx, path, s.accessToken)
	if err != nil {
		return Object{}, fmt.Errorf("chatapi: fetch of %q failed: %w", objectPath, err)
	}
	return object, nil
}

// escapeObjectPath percent-encodes each path segment while preserving
// the segment separators, so "uploads/a b.png" becomes
// "uploads/a%20b.png" rather than a single opaque segment.
func escapeObjectPath(objectPath string) string {
	segments := []byte(nil)
	start := 0
	for index := 0; index <= len(objectPath); index++ {
		if index == len(objectPath) || objectPath[index] == '/' {
			if len(segments) > 0 {
				segments = append(segments, '/')
			}
			segments = append(segments, url.PathEscape(objectPath[start:index])...)
			start = index + 1
		}
	}
	return string(segments)
}
