// Package errs defines the error taxonomy shared by the evaluator.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax marks malformed query text.
	ErrSyntax = errors.New("syntax error")
	// ErrConfig marks missing parameters or an operator used under a model that cannot score it.
	ErrConfig = errors.New("configuration error")
	// ErrConstruction marks an operator tree that is structurally invalid.
	ErrConstruction = errors.New("construction error")
	// ErrData marks bad input data such as a malformed ranking file.
	ErrData = errors.New("data error")
)

// Error wraps a sentinel with a descriptive message.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *Error {
	return &Error{Err: sentinel, Message: message}
}

func Newf(sentinel error, format string, args ...any) *Error {
	return &Error{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

// Syntaxf is shorthand for Newf(ErrSyntax, ...).
func Syntaxf(format string, args ...any) *Error {
	return Newf(ErrSyntax, format, args...)
}

func Configf(format string, args ...any) *Error {
	return Newf(ErrConfig, format, args...)
}

func Constructionf(format string, args ...any) *Error {
	return Newf(ErrConstruction, format, args...)
}

func Dataf(format string, args ...any) *Error {
	return Newf(ErrData, format, args...)
}

// Kind returns the sentinel err belongs to, or nil.
func Kind(err error) error {
	for _, s := range []error{ErrSyntax, ErrConfig, ErrConstruction, ErrData} {
		if errors.Is(err, s) {
			return s
		}
	}
	return nil
}

// KindName returns a short label for err's kind: syntax, config,
// construction, data or other.
func KindName(err error) string {
	switch Kind(err) {
	case ErrSyntax:
		return "syntax"
	case ErrConfig:
		return "config"
	case ErrConstruction:
		return "construction"
	case ErrData:
		return "data"
	}
	return "other"
}
