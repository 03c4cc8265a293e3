package server

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned when mounting into a session that ended.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrInvalidHandshake means the first frame was not a valid hello.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrMaxSessionsReached is returned when MaxSessions connections are open.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrSessionActive is returned when a hello resumes a session ID that
	// another connection holds.
	ErrSessionActive = errors.New("server: session already active")

	// ErrUnknownFrame is returned for frames of an unknown type.
	ErrUnknownFrame = errors.New("server: unknown frame type")
)

// SessionError is a failure attributed to one session and operation.
type SessionError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError wraps err with the session and operation it failed in.
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{SessionID: sessionID, Op: op, Err: err}
}
