// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"errors"
	"fmt"
)

// APIError represents a structured error response from the Maru chat
// backend. Callers use errors.As to extract the structured information:
//
//	var apiErr *chatapi.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Code == chatapi.ErrCodeNotFound { ... }
//	}
type APIError struct {
	// Code is the service error code (e.g., "ERR_UNAUTHORIZED").
	Code string `json:"code"`
	// Message is the human-readable error description from the server.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatapi: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard service error codes.
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeTooLarge     = "ERR_TOO_LARGE"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
	ErrCodeInvalidParam = "ERR_INVALID_PARAM"
	ErrCodeInternal     = "ERR_INTERNAL"
)

// IsAPIError checks whether err is a *APIError with the given code.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
