// Package apperr defines the typed error kinds the core raises, and their
// mapping to REST status codes and response bodies.
package apperr

import "fmt"

// Kind enumerates every error surfaced at the REST boundary.
type Kind int

const (
	// Internal is the catch-all for anything uncaught; maps to 500.
	Internal Kind = iota
	BadRequest
	InvalidArgument
	InvalidMethod
	InvalidToken
	UnknownToken
	MapNotFound
	FileNotFound
	FilePathEscape
)

// Error is a typed, user-facing core error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.code(), e.Message)
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// code returns the JSON `code` field used in error bodies (§7).
func (k Kind) code() string {
	switch k {
	case BadRequest:
		return "badRequest"
	case InvalidArgument:
		return "invalidArgument"
	case InvalidMethod:
		return "invalidMethod"
	case InvalidToken:
		return "invalidToken"
	case UnknownToken:
		return "unknownToken"
	case MapNotFound:
		return "mapNotFound"
	case FileNotFound:
		return "fileNotFound"
	case FilePathEscape:
		return "filePathEscape"
	default:
		return "internal"
	}
}

// Code exposes the JSON error code for the REST layer.
func (e *Error) Code() string { return e.Kind.code() }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case BadRequest, InvalidArgument, FilePathEscape:
		return 400
	case InvalidMethod:
		return 405
	case InvalidToken, UnknownToken:
		return 401
	case MapNotFound, FileNotFound:
		return 404
	default:
		return 500
	}
}
