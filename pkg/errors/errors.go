// Package errors provides custom error types for the skusync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the skusync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnmappedIdentifier indicates a raw channel identifier with no master SKU mapping
	ErrUnmappedIdentifier = errors.New("unmapped identifier")

	// ErrMalformedRow indicates a source row that could not be parsed
	ErrMalformedRow = errors.New("malformed row")

	// ErrInvalidQuantity indicates a negative or otherwise impossible quantity value
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrSchemaViolation indicates an assembled report that failed schema validation
	ErrSchemaViolation = errors.New("schema violation")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// UnmappedIdentifierError reports a raw identifier with no registry entry
// for its channel. Recoverable per-row; policy decides skip or fail.
type UnmappedIdentifierError struct {
	Channel string
	RawSKU  string
}

// Error implements the error interface
func (e *UnmappedIdentifierError) Error() string {
	return fmt.Sprintf("no master SKU mapping for %q on channel %s", e.RawSKU, e.Channel)
}

// Is implements errors.Is support
func (e *UnmappedIdentifierError) Is(target error) bool {
	return target == ErrUnmappedIdentifier
}

// NewUnmappedIdentifierError creates a new UnmappedIdentifierError
func NewUnmappedIdentifierError(channel, rawSKU string) *UnmappedIdentifierError {
	return &UnmappedIdentifierError{Channel: channel, RawSKU: rawSKU}
}

// MalformedRowError reports a source row that failed to parse.
// Recoverable per-row; the row is skipped and the run continues.
type MalformedRowError struct {
	Channel string
	Line    int
	Column  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *MalformedRowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("malformed row %d on channel %s (column %q): %s", e.Line, e.Channel, e.Column, e.Message)
	}
	return fmt.Sprintf("malformed row %d on channel %s: %s", e.Line, e.Channel, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedRowError) Is(target error) bool {
	return target == ErrMalformedRow
}

// NewMalformedRowError creates a new MalformedRowError
func NewMalformedRowError(channel string, line int, column, message string, err error) *MalformedRowError {
	return &MalformedRowError{Channel: channel, Line: line, Column: column, Message: message, Err: err}
}

// InvalidQuantityError reports a negative quantity value. Inventory and
// sales counts are never negative in this domain; the record is dropped.
type InvalidQuantityError struct {
	Channel string
	RawSKU  string
	Metric  string
	Value   string
}

// Error implements the error interface
func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid %s value %s for %q on channel %s", e.Metric, e.Value, e.RawSKU, e.Channel)
}

// Is implements errors.Is support
func (e *InvalidQuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

// NewInvalidQuantityError creates a new InvalidQuantityError
func NewInvalidQuantityError(channel, rawSKU, metric, value string) *InvalidQuantityError {
	return &InvalidQuantityError{Channel: channel, RawSKU: rawSKU, Metric: metric, Value: value}
}

// SchemaViolationError reports an assembled report that failed output schema
// validation. Fatal: the run aborts before any output or delivery.
type SchemaViolationError struct {
	Report     string
	Violations []string
}

// Error implements the error interface
func (e *SchemaViolationError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("schema validation failed for %s report", e.Report)
	}
	return fmt.Sprintf("schema validation failed for %s report: %s", e.Report, strings.Join(e.Violations, "; "))
}

// Is implements errors.Is support
func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// NewSchemaViolationError creates a new SchemaViolationError
func NewSchemaViolationError(report string, violations []string) *SchemaViolationError {
	return &SchemaViolationError{Report: report, Violations: violations}
}

// ConfigError represents a configuration error, including conflicting or
// inconsistent SKU mapping definitions surfaced at registry load time.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "yaml", "json"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{Operation: operation, Path: path, Message: message, Err: err}
}

// DeliveryError represents a failed webhook delivery
type DeliveryError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook delivery to %s failed (status %d): %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("webhook delivery to %s failed: %s", e.URL, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new DeliveryError
func NewDeliveryError(url string, statusCode int, message string, err error) *DeliveryError {
	return &DeliveryError{URL: url, StatusCode: statusCode, Message: message, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnmappedIdentifier checks if an error is an unmapped identifier error
func IsUnmappedIdentifier(err error) bool {
	return errors.Is(err, ErrUnmappedIdentifier)
}

// IsMalformedRow checks if an error is a malformed row error
func IsMalformedRow(err error) bool {
	return errors.Is(err, ErrMalformedRow)
}

// IsInvalidQuantity checks if an error is an invalid quantity error
func IsInvalidQuantity(err error) bool {
	return errors.Is(err, ErrInvalidQuantity)
}

// IsSchemaViolation checks if an error is a schema violation error
func IsSchemaViolation(err error) bool {
	return errors.Is(err, ErrSchemaViolation)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapConfig wraps an error as a ConfigError
func WrapConfig(component string, err error) error {
	if err == nil {
		return nil
	}
	return NewConfigError(component, err.Error(), err)
}
