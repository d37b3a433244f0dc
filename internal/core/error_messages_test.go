package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "empty input maps by kind",
			err:         emptyInput("CSV file appears to be empty"),
			wantCode:    "CLN001",
			wantMessage: "The file has no rows",
		},
		{
			name:        "wrapped invalid input maps by kind",
			err:         fmt.Errorf("clean report.json: %w", invalidInput(nil, "invalid JSON")),
			wantCode:    "CLN002",
			wantMessage: "The file could not be read in its declared format",
		},
		{
			name:        "unsupported feature maps by kind",
			err:         unsupported("unsupported file type %q", "pdf"),
			wantCode:    "CLN003",
			wantMessage: "This file type or feature is not supported",
		},
		{
			name:        "missing field maps by kind",
			err:         MissingField("csv_text"),
			wantCode:    "CLN004",
			wantMessage: "A required field was not provided",
		},
		{
			name:        "file too large maps correctly",
			err:         errors.New("file too large: 200MB exceeds limit"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "busy limiter maps correctly",
			err:         errors.New("too many runs in progress"),
			wantCode:    "RUN001",
			wantMessage: "System is busy cleaning other files",
		},
		{
			name:        "deadline maps before generic timeout",
			err:         fmt.Errorf("chunk 3: %w", context.DeadlineExceeded),
			wantCode:    "RUN003",
			wantMessage: "Request timed out",
		},
		{
			name:        "history connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "HIST002",
			wantMessage: "Run history is unavailable",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("NO FILE PROVIDED"),
			wantCode:    "FILE003",
			wantMessage: "No file was selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(MissingField("csv_text"))

	expected := "A required field was not provided (Code: CLN004). Provide the missing field and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "engine error is user facing",
			err:  emptyInput("JSON appears to be empty"),
			want: true,
		},
		{
			name: "known pattern is user facing",
			err:  errors.New("rate limit exceeded"),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := invalidInput(errors.New("bad zip"), "unreadable spreadsheet")
		userErr := NewUserError(techErr)

		if userErr.Error() != "The file could not be read in its declared format" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, ErrInvalidInput) {
			t.Error("Unwrap() should reach the engine error")
		}
	})
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("parse: %w", emptyInput("EXCEL file appears to be empty"))

	if !errors.Is(err, ErrEmptyInput) {
		t.Error("errors.Is(err, ErrEmptyInput) = false, want true")
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = true, want false")
	}
	if got := KindOf(err); got != KindEmptyInput {
		t.Errorf("KindOf() = %q, want %q", got, KindEmptyInput)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}
