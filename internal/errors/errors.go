// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrRecordTooLong    = errors.New("record does not fit in a buffer")
	ErrInvalidWorkers   = errors.New("worker count must be positive")
	ErrMissingDelimiter = errors.New("missing key/value delimiter")
	ErrMalformedValue   = errors.New("malformed fixed-point value")
	ErrEmptyValue       = errors.New("empty value")
	ErrPoolAborted      = errors.New("buffer pool aborted")
	ErrWriterClosed     = errors.New("storage writer is closed")
)

// ConfigError reports a configuration that cannot run. It is returned
// before any input is read.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: field=%s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: field=%s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IOError represents a failed read of the input.
type IOError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: op=%s offset=%d: %v", e.Op, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a malformed record. Offset is the file offset of
// the start of the line and Line holds at most maxLineEcho bytes of it.
type ParseError struct {
	Offset int64
	Line   string
	Err    error
}

const maxLineEcho = 64

// NewParseError copies line so the caller's buffer can be recycled.
func NewParseError(offset int64, line []byte, err error) *ParseError {
	if len(line) > maxLineEcho {
		line = line[:maxLineEcho]
	}
	return &ParseError{Offset: offset, Line: string(line), Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: offset=%d line=%q: %v", e.Offset, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError represents a result row that failed validation before export.
type ValidationError struct {
	Station string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: station=%q field=%s: %s",
		e.Station, e.Field, e.Reason)
}

// StorageError represents a storage operation failure.
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s path=%s: %v",
		e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsIOError reports whether err is or wraps an IOError.
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}
