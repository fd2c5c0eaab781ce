package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than csv and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParse is returned when file content cannot be parsed.
	ErrParse = errors.New("parse error")

	// ErrConversion is returned when serialization to the target format fails.
	ErrConversion = errors.New("conversion error")

	// ErrNoNumericData is a warning: there is nothing to plot.
	ErrNoNumericData = errors.New("no numeric data to visualize")

	// ErrColumnNotFound is returned when a named column is not in the table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrFileNotFound is returned for unknown file handles.
	ErrFileNotFound = errors.New("file not found in session")

	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManyFiles is returned when a session would exceed its file limit.
	ErrTooManyFiles = errors.New("too many files in session")

	// ErrInvalidCommand is returned for unknown actions or malformed commands.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// UnsupportedFormat returns an ErrUnsupportedFormat naming the extension.
func UnsupportedFormat(ext string) error {
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
}

// ParseError returns an ErrParse carrying the parser message.
func ParseError(msg string) error {
	return fmt.Errorf("%w: %s", ErrParse, msg)
}

// ConversionError wraps a serialization failure.
func ConversionError(err error) error {
	return fmt.Errorf("%w: %w", ErrConversion, err)
}

// Pipeline stages named in FileError.
const (
	StageLoad      = "load"
	StageClean     = "clean"
	StageProject   = "project"
	StageStats     = "stats"
	StageVisualize = "visualize"
	StageConvert   = "convert"
)

// FileError ties a pipeline failure to the file and stage it happened in.
type FileError struct {
	FileName string
	Stage    string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.FileName, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError wraps err with the file name and stage. Returns nil if err is nil.
func NewFileError(fileName, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &FileError{FileName: fileName, Stage: stage, Err: err}
}
