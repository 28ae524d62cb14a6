package runtime

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of render errors
type ErrorType string

const (
	ErrorTypeTemplateNotFound   ErrorType = "template_not_found"
	ErrorTypeInvalidStatement   ErrorType = "invalid_statement"
	ErrorTypeTemplateParsing    ErrorType = "template_parsing"
	ErrorTypeInvalidExpression  ErrorType = "invalid_expression"
	ErrorTypeUndefinedVariable  ErrorType = "undefined_variable"
	ErrorTypeUndefinedDirective ErrorType = "undefined_directive"
	ErrorTypeCache              ErrorType = "cache_error"
)

// Error represents a render error with the template and line it occurred on.
// Line is one-based; zero means the line is not known.
type Error struct {
	Type     ErrorType
	Message  string
	Template string
	Line     int
	LineText string
	Cause    error

	// snippet is the tag or expression the error was raised for
	snippet string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	if e.Template != "" {
		fmt.Fprintf(&b, " in %s", e.Template)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.LineText != "" {
		fmt.Fprintf(&b, " (%q)", strings.TrimSpace(e.LineText))
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new render error
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorf creates a new render error with a formatted message
func NewErrorf(errorType ErrorType, format string, args ...interface{}) *Error {
	return NewError(errorType, fmt.Sprintf(format, args...))
}

// NewErrorWithCause creates a new render error with an underlying cause
func NewErrorWithCause(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// WrapError attaches location information to err. Fields that are already
// set are kept, so the innermost location wins. Errors that are not render
// errors are wrapped as invalid expressions.
func WrapError(err error, template string, line int, lineText string) error {
	if err == nil {
		return nil
	}

	base := asError(err)
	if base == nil {
		wrapped := NewErrorWithCause(ErrorTypeInvalidExpression, err.Error(), err)
		wrapped.Template, wrapped.Line, wrapped.LineText = template, line, lineText
		return wrapped
	}
	if base.Template == "" {
		base.Template = template
	}
	if base.Line == 0 {
		base.Line = line
	}
	if base.LineText == "" {
		base.LineText = lineText
	}
	return err
}

// withSnippet records the template text err was raised for. An existing
// snippet is kept.
func withSnippet(err error, snippet string) error {
	if base := asError(err); base != nil && base.snippet == "" {
		base.snippet = snippet
	}
	return err
}

type runtimeErrorCarrier interface {
	runtimeError() *Error
}

// asError finds the render error in err's chain, looking through the typed
// wrappers below.
func asError(err error) *Error {
	for ; err != nil; err = errors.Unwrap(err) {
		switch e := err.(type) {
		case *Error:
			return e
		case runtimeErrorCarrier:
			if base := e.runtimeError(); base != nil {
				return base
			}
		}
	}
	return nil
}

// ErrorTypeOf returns the type of the render error in err's chain, or the
// empty string when there is none.
func ErrorTypeOf(err error) ErrorType {
	if base := asError(err); base != nil {
		return base.Type
	}
	return ""
}

// TemplateNotFoundError represents an error when a template cannot be located.
type TemplateNotFoundError struct {
	base  *Error
	Name  string
	Tried []string
}

// NewTemplateNotFound creates a TemplateNotFoundError with optional tried locations and cause.
func NewTemplateNotFound(name string, tried []string, cause error) *TemplateNotFoundError {
	message := fmt.Sprintf("template %s not found", name)
	if len(tried) > 0 {
		message = fmt.Sprintf("%s (tried: %s)", message, strings.Join(tried, ", "))
	}

	return &TemplateNotFoundError{
		base:  NewErrorWithCause(ErrorTypeTemplateNotFound, message, cause),
		Name:  name,
		Tried: append([]string(nil), tried...),
	}
}

// Error returns the message for TemplateNotFoundError.
func (e *TemplateNotFoundError) Error() string {
	if e == nil {
		return "template not found"
	}
	if e.base != nil {
		return e.base.Error()
	}
	return fmt.Sprintf("template %s not found", e.Name)
}

// Unwrap returns the underlying cause for TemplateNotFoundError.
func (e *TemplateNotFoundError) Unwrap() error {
	if e == nil || e.base == nil {
		return nil
	}
	return e.base.Cause
}

func (e *TemplateNotFoundError) runtimeError() *Error {
	if e == nil {
		return nil
	}
	return e.base
}

// UndefinedError represents a read of an unbound variable
type UndefinedError struct {
	base *Error
	Name string
}

// NewUndefinedError creates a new undefined variable error
func NewUndefinedError(name string) *UndefinedError {
	return &UndefinedError{
		base: NewError(ErrorTypeUndefinedVariable, fmt.Sprintf("variable '$%s' is undefined", name)),
		Name: name,
	}
}

func (e *UndefinedError) Error() string {
	if e == nil || e.base == nil {
		return "undefined variable"
	}
	return e.base.Error()
}

func (e *UndefinedError) runtimeError() *Error {
	if e == nil {
		return nil
	}
	return e.base
}

func isType(err error, errorType ErrorType) bool {
	return err != nil && ErrorTypeOf(err) == errorType
}

// IsTemplateNotFoundError checks if an error is a missing template error
func IsTemplateNotFoundError(err error) bool {
	return isType(err, ErrorTypeTemplateNotFound)
}

// IsInvalidStatementError checks if an error is a malformed directive error
func IsInvalidStatementError(err error) bool {
	return isType(err, ErrorTypeInvalidStatement)
}

// IsTemplateParsingError checks if an error is a structural template error
func IsTemplateParsingError(err error) bool {
	return isType(err, ErrorTypeTemplateParsing)
}

// IsInvalidExpressionError checks if an error is an expression error
func IsInvalidExpressionError(err error) bool {
	return isType(err, ErrorTypeInvalidExpression)
}

// IsUndefinedVariableError checks if an error is an undefined variable error
func IsUndefinedVariableError(err error) bool {
	return isType(err, ErrorTypeUndefinedVariable)
}

// IsUndefinedDirectiveError checks if an error is a call of an unregistered directive
func IsUndefinedDirectiveError(err error) bool {
	return isType(err, ErrorTypeUndefinedDirective)
}

// IsCacheError checks if an error comes from the render cache
func IsCacheError(err error) bool {
	return isType(err, ErrorTypeCache)
}
