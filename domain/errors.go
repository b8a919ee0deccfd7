package domain

import "fmt"

// Stable protocol error codes surfaced in ERROR messages.
const (
	ErrCodeInvalidMessage     = "INVALID_MESSAGE"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeSessionBlocked     = "SESSION_BLOCKED"
	ErrCodeCollaboratorError  = "COLLABORATOR_ERROR"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeUnknownMessageType = "UNKNOWN_MESSAGE_TYPE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// InvalidTransitionError reports an illegal state machine transition.
// It is recovered locally by the orchestrator and never fatal.
type InvalidTransitionError struct {
	From InterviewState
	To   InterviewState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// SessionNotFoundError reports a routing miss in the hub.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// CollaboratorError reports a failed or malformed response from an
// external question/evaluation/speech service. The session stays open
// so the client can retry the turn.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// MalformedMessageError reports a schema violation on an inbound
// protocol message. The session is unaffected.
type MalformedMessageError struct {
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return "malformed message: " + e.Reason
}
