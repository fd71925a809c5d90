// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/maru-commerce/maru-chat/lib/netutil"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the base URL of the Maru chat backend
	// (e.g., "https://api.maru.shop").
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client is an unauthenticated connection to the Maru chat backend.
// It holds the base URL and HTTP transport, shared across Sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new unauthenticated backend client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("chatapi: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("chatapi: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a network disruption to
// force subsequent requests onto fresh TCP connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Login authenticates with an account ID and password, returning an
// authenticated Session.
func (c *Client) Login(ctx context.Context, accountID ref.UserID, password string) (*Session, error) {
	if accountID.IsZero() {
		return nil, fmt.Errorf("chatapi: account ID is required for login")
	}
	if password == "" {
		return nil, fmt.Errorf("chatapi: password is required for login")
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		AccountID: accountID.String(),
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("chatapi: login failed: %w", err)
	}

	var response authResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("chatapi: failed to parse login response: %w", err)
	}

	c.logger.Info("logged in to maru backend", "account_id", response.AccountID)

	return &Session{
		client:      c,
		accessToken: response.AccessToken,
		userID:      response.AccountID,
	}, nil
}

// SessionFromToken creates a Session from an existing access token.
// This does NOT validate the token — the first API call fails with
// ErrCodeUnauthorized if it has expired or been revoked.
func (c *Client) SessionFromToken(userID ref.UserID, accessToken string) (*Session, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("chatapi: user ID is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("chatapi: access token is required")
	}
	return &Session{
		client:      c,
		accessToken: accessToken,
		userID:      userID,
	}, nil
}

// doRequest performs a JSON API request and returns the response body.
// On 2xx, returns the body. On 4xx/5xx, returns a *APIError (alongside
// the raw body, which some callers need). accessToken may be empty for
// unauthenticated endpoints. query may be nil.
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, requestBody any, query ...url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 && query[0] != nil {
		requestURL += "?" + query[0].Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("chatapi: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("chatapi: failed to create request: %w", err)
	}

	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("chatapi: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("chatapi: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	return responseBody, decodeAPIError(response.StatusCode, method, path, responseBody)
}

// doRequestUpload performs a request with a prebuilt non-JSON body
// (multipart message sends). The contentType must include any
// multipart boundary.
func (c *Client) doRequestUpload(ctx context.Context, method, path, accessToken, contentType string, body io.Reader) ([]byte, error) {
	requestURL := c.baseURL + path

	request, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("chatapi: failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", contentType)
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("chatapi: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("chatapi: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	return nil, decodeAPIError(response.StatusCode, method, path, responseBody)
}

// doRequestObject performs an authenticated binary fetch and returns
// the object content and MIME type.
func (c *Client) doRequestObject(ctx context.Context, path, accessToken string) (Object, error) {
	requestURL := c.baseURL + path

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Object{}, fmt.Errorf("chatapi: failed to create request: %w", err)
	}
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return Object{}, fmt.Errorf("chatapi: request to GET %s failed: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		responseBody, readErr := netutil.ReadResponse(response.Body)
		if readErr != nil {
			return Object{}, fmt.Errorf("chatapi: failed to read error response: %w", readErr)
		}
		return Object{}, decodeAPIError(response.StatusCode, http.MethodGet, path, responseBody)
	}

	data, err := netutil.ReadObject(response.Body)
	if err != nil {
		return Object{}, fmt.Errorf("chatapi: failed to read object body: %w", err)
	}

	return Object{
		ContentType: response.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// decodeAPIError parses an error response body into a *APIError. All
// backend error responses use the same JSON shape; a non-JSON error
// body (reverse proxy failure, crash page) fails loud with the raw
// body included.
func decodeAPIError(statusCode int, method, path string, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
		return fmt.Errorf("chatapi: unexpected %d response from %s %s: %s",
			statusCode, method, path, string(body))
	}
	apiErr.StatusCode = statusCode
	return &apiErr
}
