package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	KindConfigNotFound  Kind = "ConfigurationNotFound"
	KindConfigInvalid   Kind = "ConfigurationInvalid"
	KindMissingServer   Kind = "MissingServer"
	KindMissingTool     Kind = "MissingTool"
	KindServerNotFound  Kind = "ServerNotFound"
	KindServerDisabled  Kind = "ServerDisabled"
	KindSubprocessStart Kind = "SubprocessStartFailure"
	KindProtocol        Kind = "ProtocolError"
	KindToolInvocation  Kind = "ToolInvocationError"
)

// ErrorPrefix starts every error string returned by Dispatch.
const ErrorPrefix = "Error: "

// Error is a classified dispatch failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// NewError returns an Error of the given kind wrapping err (which may be nil).
func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err == nil:
		return e.Msg
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Format renders err the way Dispatch returns failures.
func Format(err error) string {
	return ErrorPrefix + err.Error()
}

// classify wraps err as kind unless it already carries a kind.
func classify(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return NewError(kind, fmt.Sprintf(format, args...), err)
}
