// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// storedSession holds the saved authentication state. Written by
// --login and loaded transparently on subsequent runs, like SSH keys:
// authenticate once, then access is seamless.
type storedSession struct {
	// UserID is the signed-in account ID (e.g., "KH001").
	UserID string `json:"user_id"`

	// AccessToken is the bearer token proving the account's identity.
	AccessToken string `json:"access_token"`

	// APIURL is the backend the token was issued by. Recorded so a
	// later run against a different --api-url fails loudly instead of
	// sending the token to the wrong host.
	APIURL string `json:"api_url"`
}

// sessionFilePath returns the path to the saved session. Checks the
// MARU_SESSION_FILE environment variable first, then falls back to
// the config directory.
func sessionFilePath() string {
	if envPath := os.Getenv("MARU_SESSION_FILE"); envPath != "" {
		return envPath
	}
	return filepath.Join(configDirectory(), "session.json")
}

// loadStoredSession reads the saved session, with a clear error
// directing the user to --login when none exists.
func loadStoredSession(path string) (*storedSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no saved session at %s — run \"maru-chat --login <account>\" first", path)
		}
		return nil, fmt.Errorf("reading session file %s: %w", path, err)
	}

	var session storedSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	if session.UserID == "" {
		return nil, fmt.Errorf("session file %s has no user_id", path)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("session file %s has no access_token", path)
	}
	return &session, nil
}

// saveStoredSession writes the session with owner-only permissions,
// creating the parent directory if needed. The file contains an
// access token, hence 0600.
func saveStoredSession(session *storedSession, path string) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing session file %s: %w", path, err)
	}
	return nil
}
