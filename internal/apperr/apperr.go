// Package apperr defines the application error type used to classify
// failures as fatal or recoverable.
package apperr

import (
	"errors"
	"fmt"
)

// Severity determines how a failure affects the command that produced it.
// A fatal failure aborts the command; a warning is accumulated and reported
// without interrupting it.
type Severity string

const (
	Fatal   Severity = "fatal"
	Warning Severity = "warning"
)

// Kind identifies the failure category.
type Kind string

const (
	InvalidInput   Kind = "invalid_input"
	Persistence    Kind = "persistence"
	RuleInstall    Kind = "rule_install"
	TabReconcile   Kind = "tab_reconcile"
	Alarm          Kind = "alarm"
	Audio          Kind = "audio"
	Notify         Kind = "notify"
	UnknownCommand Kind = "unknown_command"
)

// Error is a classified application error.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error with the given message.
func New(kind Kind, severity Severity, message string) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, severity Severity, message string, err error) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message, Err: err}
}

// SeverityOf reports the severity of err. Errors that carry no
// classification are treated as fatal.
func SeverityOf(err error) Severity {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity
	}

	return Fatal
}

// IsFatal reports whether err should abort the command that produced it.
func IsFatal(err error) bool {
	return SeverityOf(err) == Fatal
}

// KindOf returns the kind of err, or the empty Kind for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return ""
}
