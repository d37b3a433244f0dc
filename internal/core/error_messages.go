package core

// # Error Codes Reference
//
// User-facing messages carry a code that users can quote to support.
//
// # Cleaning Errors (CLN001-CLN099)
//
// Matched on the engine error kind, before any text pattern:
//
//	CLN001 - Empty input: The file has no rows
//	         Action: Upload a file with a header row and data
//	CLN002 - Invalid input: The file could not be read in its declared format
//	         Action: Check the file type and that the content is well formed
//	CLN003 - Unsupported: The file type or feature is not supported
//	         Action: Use CSV, TSV, JSON or XLSX
//	CLN004 - Missing field: A required parameter was not provided
//	         Action: Provide the missing field and try again
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large          Patterns: "file too large"
//	FILE002 - Encoding error          Patterns: "encoding error"
//	FILE003 - No file                 Patterns: "no file provided"
//	FILE004 - Too many files          Patterns: "too many files"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy              Patterns: "too many runs"
//	RUN002 - Request cancelled        Patterns: "context canceled"
//	RUN003 - Request timeout          Patterns: "context deadline exceeded", "timeout"
//
// # History Errors (HIST001-HIST099)
//
//	HIST001 - Run not found           Patterns: "run not found"
//	HIST002 - History unavailable     Patterns: "history disabled", "connection refused", "connection reset"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited            Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the server log, which records the
// technical error with the request id.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// kindMessages maps engine error kinds to user messages.
var kindMessages = map[ErrorKind]UserMessage{
	KindEmptyInput: {
		Message: "The file has no rows",
		Action:  "Upload a file with a header row and data",
		Code:    "CLN001",
	},
	KindInvalidInput: {
		Message: "The file could not be read in its declared format",
		Action:  "Check the file type and that the content is well formed",
		Code:    "CLN002",
	},
	KindUnsupportedFeature: {
		Message: "This file type or feature is not supported",
		Action:  "Use CSV, TSV, JSON or XLSX",
		Code:    "CLN003",
	},
	KindMissingRequiredField: {
		Message: "A required field was not provided",
		Action:  "Provide the missing field and try again",
		Code:    "CLN004",
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Select a file or paste CSV text",
			Code:    "FILE003",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files in one request",
			Action:  "Upload fewer files at a time",
			Code:    "FILE004",
		},
	},

	// Run errors
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "System is busy cleaning other files",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN003",
		},
	},

	// History errors
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Cleaning run not found",
			Action:  "Check the run id",
			Code:    "HIST001",
		},
	},
	{
		pattern: "history disabled",
		msg: UserMessage{
			Message: "Run history is not enabled on this server",
			Action:  "Set HISTORY_DSN to record runs",
			Code:    "HIST002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Run history is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "HIST002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Run history connection was interrupted",
			Action:  "Please try again",
			Code:    "HIST002",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Engine errors map by kind; other errors by the first matching text
// pattern; anything else gets ERR000.
//
// Example:
//
//	_, _, err := engine.CleanFile(ctx, nil, "x.csv", opts)
//	msg := MapError(err)
//	// msg.Code == "CLN001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := kindMessages[KindOf(err)]; ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
