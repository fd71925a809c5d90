// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

// newTestSession creates a Client and Session pointing at a test server.
func newTestSession(t *testing.T, handler http.Handler) (*Client, *Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken(mustUserID(t, "KH001"), "test-token")
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	return client, session
}

func assertAuth(t *testing.T, request *http.Request, token string) {
	t.Helper()
	if got := request.Header.Get("Authorization"); got != "Bearer "+token {
		t.Errorf("unexpected Authorization header: %q", got)
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(value)
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/v1/auth/login" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		var body loginRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("decoding login body: %v", err)
		}
		if body.AccountID != "KH001" || body.Password != "hunter2" {
			t.Errorf("unexpected credentials: %+v", body)
		}
		writeJSON(writer, authResponse{
			AccountID:   mustUserID(t, "KH001"),
			AccessToken: "fresh-token",
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	session, err := client.Login(context.Background(), mustUserID(t, "KH001"), "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.UserID().String() != "KH001" {
		t.Errorf("unexpected session user: %s", session.UserID())
	}
}

func TestListThreads(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/api/v1/chat/threads" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, threadsResponse{Threads: []ThreadSummary{
			{
				CounterpartID: mustUserID(t, "KH777"),
				LastMessage:   LastMessage{Content: "see you", SentAt: time.Unix(1700000000, 0).UTC(), Read: true},
			},
		}})
	}))

	threads, err := session.ListThreads(context.Background())
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 1 || threads[0].CounterpartID.String() != "KH777" {
		t.Errorf("unexpected threads: %+v", threads)
	}
}

func TestMessages(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/api/v1/chat/messages/AD00012" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, messagesResponse{Messages: []Message{
			{
				ID:          "m-1",
				SenderID:    mustUserID(t, "AD00012"),
				RecipientID: mustUserID(t, "KH001"),
				Content:     "hello, how can we help?",
				Kind:        KindText,
				CreatedAt:   time.Unix(1700000000, 0).UTC(),
			},
		}})
	}))

	messages, err := session.Messages(context.Background(), mustUserID(t, "AD00012"))
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].ID != "m-1" {
		t.Errorf("unexpected messages: %+v", messages)
	}
}

func TestSendText(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", request.Method)
		}
		var body SendRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("decoding send body: %v", err)
		}
		if body.Content != "on my way" || body.Kind != KindText {
			t.Errorf("unexpected send body: %+v", body)
		}
		writeJSON(writer, Message{
			ID:          "m-42",
			SenderID:    mustUserID(t, "KH001"),
			RecipientID: mustUserID(t, "AD00012"),
			Content:     body.Content,
			Kind:        body.Kind,
			CreatedAt:   time.Now().UTC(),
		})
	}))

	message, err := session.Send(context.Background(), mustUserID(t, "AD00012"), SendRequest{
		Content: "on my way",
		Kind:    KindText,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if message.ID != "m-42" {
		t.Errorf("unexpected message ID: %s", message.ID)
	}
}

func TestSendAttachmentMultipart(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if err := request.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := request.FormValue("kind"); got != string(KindAttachment) {
			t.Errorf("unexpected kind field: %q", got)
		}
		file, header, err := request.FormFile("attachment")
		if err != nil {
			t.Fatalf("reading attachment part: %v", err)
		}
		defer file.Close()
		if header.Filename != "receipt.png" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}
		writeJSON(writer, Message{
			ID:             "m-43",
			SenderID:       mustUserID(t, "KH001"),
			RecipientID:    mustUserID(t, "AD00012"),
			Kind:           KindAttachment,
			AttachmentPath: mustPath(t, "uploads/1700000000_receipt.png"),
			CreatedAt:      time.Now().UTC(),
		})
	}))

	message, err := session.Send(context.Background(), mustUserID(t, "AD00012"), SendRequest{
		Kind: KindAttachment,
		Attachment: &Attachment{
			Filename:    "receipt.png",
			ContentType: "image/png",
			Data:        []byte{0x89, 0x50, 0x4E, 0x47},
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if message.AttachmentPath.IsZero() {
		t.Error("confirmed attachment message has no attachment path")
	}
}

func TestSearchUsers(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if got := request.URL.Query().Get("query"); got != "kim" {
			t.Errorf("unexpected query: %q", got)
		}
		writeJSON(writer, searchResponse{Users: []User{
			{ID: mustUserID(t, "KH310"), DisplayName: "Kim Dahyun"},
		}})
	}))

	users, err := session.SearchUsers(context.Background(), "kim")
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].DisplayName != "Kim Dahyun" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestLookupUserNotFound(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(writer).Encode(APIError{Code: ErrCodeNotFound, Message: "no such account"})
	}))

	_, err := session.LookupUser(context.Background(), mustUserID(t, "KH999"))
	if err == nil {
		t.Fatal("LookupUser unexpectedly succeeded")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is not *APIError: %v", err)
	}
	if apiErr.Code != ErrCodeNotFound || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected API error: %+v", apiErr)
	}
	if !IsAPIError(err, ErrCodeNotFound) {
		t.Error("IsAPIError(ErrCodeNotFound) = false")
	}
}

func TestFetchAttachment(t *testing.T) {
	content := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/api/v1/objects/uploads/1700000000_photo.png" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writer.Header().Set("Content-Type", "image/png")
		_, _ = writer.Write(content)
	}))

	object, err := session.FetchAttachment(context.Background(), mustPath(t, "uploads/1700000000_photo.png"))
	if err != nil {
		t.Fatalf("FetchAttachment failed: %v", err)
	}
	if !object.IsImage() {
		t.Errorf("object not detected as image: %q", object.ContentType)
	}
	if len(object.Data) != len(content) {
		t.Errorf("unexpected object size: %d", len(object.Data))
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		_, _ = writer.Write([]byte("<html>gateway error</html>"))
	}))

	_, err := session.ListThreads(context.Background())
	if err == nil {
		t.Fatal("ListThreads unexpectedly succeeded")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("non-JSON error body should not produce *APIError, got %+v", apiErr)
	}
}
