// Package crawlererr defines the error taxonomy shared across the crawler daemon.
// Errors raised by the config loader, the store, the sink and the HTTP
// executor are wrapped in a Kind so that callers can branch on failure class
// with errors.Is/errors.As instead of string matching.
package crawlererr

import (
	"errors"
	"fmt"
)

// Kind classifies the origin of an error.
type Kind string

const (
	Config      Kind = "config"
	Http        Kind = "http"
	RateLimited Kind = "rate_limited"
	Parse       Kind = "parse"
	NotFound    Kind = "not_found"
	Storage     Kind = "storage"
	Io          Kind = "io"
)

// Error pairs a Kind with the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &crawlererr.Error{Kind: crawlererr.Config}) etc. match
// on Kind alone, without a sentinel per kind. Only a target with a nil Err matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

// Wrap annotates err with a Kind and an operation name. Returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds a Kind error from a message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Of reports whether err (or something it wraps) carries the given Kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
