package types

import "errors"

var (
	ErrInputParse              = errors.New("no parseable value in reply")
	ErrInvariantViolation      = errors.New("value out of range")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrMalformedResponse       = errors.New("malformed collaborator response")
	ErrBusy                    = errors.New("session is busy")
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionReset            = errors.New("session was reset while the turn was in flight")
)

type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindInputParse   ErrorKind = "input_parse"
	ErrorKindInvariant    ErrorKind = "invariant_violation"
	ErrorKindUnavailable  ErrorKind = "collaborator_unavailable"
	ErrorKindMalformed    ErrorKind = "malformed_response"
	ErrorKindBusy         ErrorKind = "busy"
	ErrorKindNotFound     ErrorKind = "not_found"
	ErrorKindSessionReset ErrorKind = "session_reset"
	ErrorKindUnclassified ErrorKind = "unclassified"
)

func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrInputParse):
		return ErrorKindInputParse
	case errors.Is(err, ErrInvariantViolation):
		return ErrorKindInvariant
	case errors.Is(err, ErrMalformedResponse):
		return ErrorKindMalformed
	case errors.Is(err, ErrCollaboratorUnavailable):
		return ErrorKindUnavailable
	case errors.Is(err, ErrBusy):
		return ErrorKindBusy
	case errors.Is(err, ErrSessionNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrSessionReset):
		return ErrorKindSessionReset
	default:
		return ErrorKindUnclassified
	}
}
