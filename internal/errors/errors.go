// Package errors provides enhanced error handling with component and
// category metadata for diagnostics. It wraps the standard library errors
// package so callers only need a single import.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory classifies an error for logging and metrics.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParse     ErrorCategory = "file-parse"
	CategoryNetwork       ErrorCategory = "network"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryImageRender   ErrorCategory = "image-render"
	CategoryGeneric       ErrorCategory = "generic"
)

// EnhancedError carries the underlying error plus structured metadata.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	context   map[string]any
}

// Error renders the component, message and context as a single line.
func (e *EnhancedError) Error() string {
	var sb strings.Builder
	if e.Component != "" {
		sb.WriteString(e.Component)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Err.Error())
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.context[k])
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap exposes the underlying error to errors.Is/errors.As.
func (e *EnhancedError) Unwrap() error { return e.Err }

// GetContext returns a copy of the attached context values.
func (e *EnhancedError) GetContext() map[string]any {
	out := make(map[string]any, len(e.context))
	for k, v := range e.context {
		out[k] = v
	}
	return out
}

// ErrorBuilder accumulates metadata before producing an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts building an enhanced error around an existing error.
func New(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf starts building an enhanced error from a format string.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component records the component that raised the error.
func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.component = name
	return b
}

// Category records the error classification.
func (b *ErrorBuilder) Category(cat ErrorCategory) *ErrorBuilder {
	b.category = cat
	return b
}

// Context attaches a key-value pair to the error.
func (b *ErrorBuilder) Context(key string, val any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = val
	return b
}

// Build finalizes the error.
func (b *ErrorBuilder) Build() error {
	return &EnhancedError{
		Err:       b.err,
		Component: b.component,
		Category:  b.category,
		context:   b.context,
	}
}

// NewStd creates a plain sentinel error without metadata.
func NewStd(text string) error { return errors.New(text) }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// CategoryOf returns the category of an enhanced error, or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}
