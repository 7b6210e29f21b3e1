package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventTokenRevoked       EventType = "token_revoked"
	EventAccessTokenRotated EventType = "access_token_rotated"
)

// Event represents an auth audit event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID int64     `json:"subject_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, subjectID int64, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// TokenRevokedPayload payload. Only the fingerprint is recorded, never the token.
type TokenRevokedPayload struct {
	Fingerprint string `json:"fingerprint"`
}
