package rgo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrSessionClosed is returned by every operation on a Conn after Close
// or after the R process has exited.
var ErrSessionClosed = errors.New("rgo: session closed")

// StartupError reports that R could not be located or initialized.
type StartupError struct {
	RPath string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("rgo: failed to start R (%s): %v", e.RPath, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// EvaluationError holds the condition message of an R error raised while
// parsing or evaluating an expression. The session remains usable.
type EvaluationError struct {
	Expr    string
	Message string
	// Incomplete is set when R stopped parsing at the end of the input,
	// e.g. an unclosed brace.
	Incomplete bool
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rgo: error evaluating %q: %s", shorten(e.Expr), e.Message)
}

// TypeMismatchError is returned when a result cannot be decoded as the
// requested Go type.
type TypeMismatchError struct {
	Expr string
	Want Kind
	Got  Kind
	Len  int
}

func (e *TypeMismatchError) Error() string {
	if e.Want == e.Got {
		return fmt.Sprintf("rgo: %q has length %d, want a single %s", shorten(e.Expr), e.Len, e.Want)
	}
	return fmt.Sprintf("rgo: %q is %s, want %s", shorten(e.Expr), e.Got, e.Want)
}

// ShapeMismatchError is returned when a matrix is requested and the result
// does not have exactly two dimensions.
type ShapeMismatchError struct {
	Expr string
	Dim  []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("rgo: %q has %d dimensions %v, want 2", shorten(e.Expr), len(e.Dim), e.Dim)
}

// UnsupportedTypeError is returned when a Go value has no R encoding or an
// R value has no Go decoding.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("rgo: unsupported type %s", e.Type)
}

func IsStartupError(err error) bool {
	var e *StartupError
	return errors.As(err, &e)
}

func IsEvaluationError(err error) bool {
	var e *EvaluationError
	return errors.As(err, &e)
}

func IsTypeMismatch(err error) bool {
	var e *TypeMismatchError
	return errors.As(err, &e)
}

func IsShapeMismatch(err error) bool {
	var e *ShapeMismatchError
	return errors.As(err, &e)
}

func IsUnsupportedType(err error) bool {
	var e *UnsupportedTypeError
	return errors.As(err, &e)
}

func IsSessionClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}

func shorten(expr string) string {
	expr = strings.TrimSpace(expr)
	if i := strings.IndexByte(expr, '\n'); i >= 0 {
		expr = expr[:i] + " ..."
	}
	if len(expr) > 60 {
		expr = expr[:57] + "..."
	}
	return expr
}
