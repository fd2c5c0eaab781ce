package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Patterns: "file too large"
//	FILE002 - Empty file: The uploaded file is empty
//	          Patterns: "empty file"
//	FILE003 - Unsupported format: Only .csv and .xlsx files are accepted
//	          Patterns: "unsupported format"
//	FILE004 - Parse error: The file could not be read as a table
//	          Patterns: "parse error"
//	FILE005 - No file: No file was selected
//	          Patterns: "no file provided"
//
// # Conversion and Visualization (CNV001, VIZ001)
//
//	CNV001 - Conversion failed: The table could not be written in the target format
//	         Patterns: "conversion error"
//	VIZ001 - Nothing to plot: The table has no numeric columns
//	         Patterns: "no numeric data"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Column not found: The selected column is not in the table
//	         Patterns: "column not found"
//	VAL002 - Invalid request: The requested action is not recognised
//	         Patterns: "invalid command"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Session not found
//	         Patterns: "session not found"
//	SES002 - File not found: The file is no longer part of this session
//	         Patterns: "file not found in session"
//	SES003 - Too many files: The session holds the maximum number of files
//	         Patterns: "too many files"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	         Patterns: "too many concurrent uploads"
//	UPL004 - Request cancelled: Patterns: "context canceled"
//	UPL005 - Request timeout: Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests: Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check
// application logs for the original technical error.
//
// Patterns are matched case-insensitively using strings.Contains and the
// first match wins, so more specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE003",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "The file could not be read as a table",
			Action:  "Check that every row has the same number of columns as the header",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose one or more .csv or .xlsx files",
			Code:    "FILE005",
		},
	},

	// Conversion and visualization
	{
		pattern: "conversion error",
		msg: UserMessage{
			Message: "The table could not be converted",
			Action:  "Try the other output format or re-upload the file",
			Code:    "CNV001",
		},
	},
	{
		pattern: "no numeric data",
		msg: UserMessage{
			Message: "No numeric columns available for visualization",
			Action:  "Select at least one numeric column",
			Code:    "VIZ001",
		},
	},

	// Validation
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "The selected column is not in the table",
			Action:  "Refresh the page and choose a column again",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid command",
		msg: UserMessage{
			Message: "The requested action is not recognised",
			Action:  "Refresh the page and try again",
			Code:    "VAL002",
		},
	},

	// Session
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Upload your files again",
			Code:    "SES001",
		},
	},
	{
		pattern: "file not found in session",
		msg: UserMessage{
			Message: "The file is no longer part of this session",
			Action:  "Upload the file again",
			Code:    "SES002",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "This session already holds the maximum number of files",
			Action:  "Remove a file before uploading more",
			Code:    "SES003",
		},
	},

	// Upload
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
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

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches the known patterns (case-insensitive) and returns the first
// match, or the ERR000 fallback.
//
// Example:
//
//	msg := MapError(UnsupportedFormat("txt"))
//	// msg.Code == "FILE003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// FormatFileError formats a per-file failure so the message names the file.
func FormatFileError(fileName string, err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("Error processing %s: %s (Code: %s). %s", fileName, msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error
	User      UserMessage
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
