package mcp

import (
	"errors"
	"fmt"

	"go-mcp-server/pkg/protocol"
	"go-mcp-server/pkg/schema"
)

// NotFoundError reports a lookup miss against the catalog: an unknown tool
// name, or a URI matching neither a static resource nor any template.
type NotFoundError struct {
	Kind string // "tool" or "resource"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// SessionError reports a missing, unknown, or already-closed session token
// on a request that requires one. It never creates or mutates session state.
type SessionError struct {
	Token  string
	Reason string
}

func (e *SessionError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("session error: %s", e.Reason)
	}
	return fmt.Sprintf("session error: %s (token %s)", e.Reason, e.Token)
}

// HandlerError wraps a failure raised inside user-supplied handler code,
// including recovered panics.
type HandlerError struct {
	Name string // tool name or resource URI
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s failed: %v", e.Name, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// errorCode maps a dispatch failure to its JSON-RPC error code. Used only on
// the hard-failure path (resource reads, session and transport errors); tool
// call failures are folded into soft results before reaching here.
func errorCode(err error) int {
	var (
		nf *NotFoundError
		se *SessionError
		ve schema.ValidationErrors
	)
	switch {
	case errors.As(err, &nf):
		return protocol.CodeInvalidParams
	case errors.As(err, &se):
		return protocol.CodeSessionError
	case errors.As(err, &ve):
		return protocol.CodeInvalidParams
	default:
		return protocol.CodeInternalError
	}
}
