// Package validation provides boundary validation for caller-supplied
// input, collected field by field instead of failing on the first problem.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FieldError represents a single field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []FieldError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *FieldError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []FieldError {
	return c.errors
}

// Error renders the accumulated failures as a single message.
func (c *Collector) Error() string {
	parts := make([]string, len(c.errors))
	for i, e := range c.errors {
		parts[i] = e.Field + " " + e.Message
	}
	return strings.Join(parts, "; ")
}

// Required returns an error if the value is empty or whitespace-only.
func Required(field, value string) *FieldError {
	if strings.TrimSpace(value) == "" {
		return &FieldError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// MaxLength returns an error if the value exceeds max runes.
func MaxLength(field, value string, max int) *FieldError {
	if utf8.RuneCountInString(value) > max {
		return &FieldError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// NoNullBytes returns an error if the value contains null bytes.
func NoNullBytes(field, value string) *FieldError {
	if strings.Contains(value, "\x00") {
		return &FieldError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}
