package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can react without string matching.
type ErrorKind string

const (
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindEmptyFile         ErrorKind = "empty_file"
	KindParseFailure      ErrorKind = "parse_failure"
	KindFilesystem        ErrorKind = "filesystem"
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation"
	KindInternal          ErrorKind = "internal"
)

// Error is the structured error returned by every pipeline stage.
// Op names the stage or operation that failed; Err is the underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrEmptyFile         = &Error{Kind: KindEmptyFile}
	ErrParseFailure      = &Error{Kind: KindParseFailure}
	ErrFilesystem        = &Error{Kind: KindFilesystem}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrValidation        = &Error{Kind: KindValidation}
)

// E builds an *Error. msg may be empty when the cause says enough.
func E(kind ErrorKind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	var s string
	switch {
	case e.Msg != "" && e.Err != nil:
		s = fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		s = e.Msg
	case e.Err != nil:
		s = e.Err.Error()
	default:
		s = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + s
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for anything unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
