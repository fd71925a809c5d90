// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatapi is the HTTP client for the Maru chat backend: the
// message history/send service, the thread list service, the user
// directory, and the binary object service for attachments.
//
// Client holds the connection configuration (base URL, HTTP transport,
// logger) and is shared across Sessions. Session wraps a Client with
// an access token and exposes the authenticated API surface. Both are
// safe for concurrent use.
//
// Every failed API call yields a *APIError carrying the service error
// code and HTTP status; callers extract it with errors.As and branch
// on the code. Transport-level failures (connection refused, timeouts)
// are returned as wrapped plain errors.
package chatapi
