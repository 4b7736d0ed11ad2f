package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "auth.login.succeeded"
	EventLoginFailed    EventType = "auth.login.failed"
	EventUserRegistered EventType = "auth.user.registered"
	EventTokenRejected  EventType = "auth.token.rejected"
)

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// Reason is internal only and never returned to clients.
	Reason string `json:"reason,omitempty"`
}

// NewEvent builds an event; the dispatcher assigns its ID and Timestamp.
func NewEvent(eventType EventType, username, reason string) Event {
	return Event{Type: eventType, Username: username, Reason: reason}
}
