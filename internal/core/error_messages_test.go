package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"unsupported extension", UnsupportedFormat("txt"), "FILE003"},
		{"malformed content", ParseError("line 3: expected 2 fields, saw 3"), "FILE004"},
		{"empty file wins over parse error", ParseError("empty file"), "FILE002"},
		{"file too large", fmt.Errorf("%w: 300 bytes", ErrFileTooLarge), "FILE001"},
		{"conversion failure", ConversionError(errors.New("disk full")), "CNV001"},
		{"nothing to plot", ErrNoNumericData, "VIZ001"},
		{"unknown column", fmt.Errorf("%w: %q", ErrColumnNotFound, "z"), "VAL001"},
		{"unknown action", ErrInvalidCommand, "VAL002"},
		{"expired session", ErrSessionNotFound, "SES001"},
		{"unknown file handle", ErrFileNotFound, "SES002"},
		{"session full", ErrTooManyFiles, "SES003"},
		{"limiter busy", ErrTooManyUploads, "UPL002"},
		{"cancelled", context.Canceled, "UPL004"},
		{"deadline", context.DeadlineExceeded, "UPL005"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"wrapped in file error", NewFileError("a.csv", StageLoad, UnsupportedFormat("txt")), "FILE003"},
		{"case insensitive", errors.New("PARSE ERROR: bad quote"), "FILE004"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(UnsupportedFormat("txt"))
	want := "Unsupported file type (Code: FILE003). Upload a .csv or .xlsx file"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestFormatFileError(t *testing.T) {
	got := FormatFileError("report.txt", UnsupportedFormat("txt"))
	want := "Error processing report.txt: Unsupported file type (Code: FILE003). Upload a .csv or .xlsx file"
	if got != want {
		t.Errorf("FormatFileError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrConversion, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
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
		techErr := ParseError("bare quote in non-quoted field")
		userErr := NewUserError(techErr)

		if userErr.Error() != "The file could not be read as a table" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrParse) {
			t.Error("errors.Is(userErr, ErrParse) = false, want true")
		}
	})
}
