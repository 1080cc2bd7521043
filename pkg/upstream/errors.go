// Package upstream provides the HTTP client for the insurance-quoting API
// with error classification and retry handling.
package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Error is an upstream API error carrying the original status and payload.
// It crosses the augmentation boundary unchanged so the proxy layer can
// forward the upstream's own status code and body.
type Error struct {
	StatusCode int
	Body       json.RawMessage
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Body)
}

// Class classifies the error by status code.
func (e *Error) Class() ErrorClass {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}

// errorPayload matches the upstream error body shape. Entries in the errors
// list are either plain strings or objects with a message field.
type errorPayload struct {
	Errors []json.RawMessage `json:"errors"`
}

// Messages extracts the upstream error message list, in order. Returns nil
// when the payload has no recognizable errors field.
func (e *Error) Messages() []string {
	var payload errorPayload
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return nil
	}

	var messages []string
	for _, entry := range payload.Errors {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			messages = append(messages, s)
			continue
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(entry, &obj); err == nil && obj.Message != "" {
			messages = append(messages, obj.Message)
		}
	}
	return messages
}

// LastMessage returns the last entry of the error message list, or "" when
// there is none.
func (e *Error) LastMessage() string {
	messages := e.Messages()
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1]
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors carry meaning for the augmenters; never retried
		return false
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}
