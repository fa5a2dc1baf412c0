package model

import "time"

type NotificationType string

const (
	TypeUserRegistration NotificationType = "UserRegistration"
	TypeOrderCreated     NotificationType = "OrderCreated"
)

func (t NotificationType) String() string { return string(t) }

// Supported reports whether the worker knows how to deliver this type.
// Unknown values stay representable (plain string) so forward-compatible
// payloads still decode; they are rejected at delivery time instead.
func (t NotificationType) Supported() bool {
	return t == TypeUserRegistration || t == TypeOrderCreated
}

// NotificationEvent is the unit of work: produced upstream, consumed once
// per delivery attempt, and appended to the audit store in terminal state.
// The event id is kept as a plain field (not a document key) so repeated
// deliveries of the same id append as separate audit records.
type NotificationEvent struct {
	ID           string            `json:"id" bson:"id"`
	Type         NotificationType  `json:"type" bson:"type"`
	Timestamp    time.Time         `json:"timestamp" bson:"timestamp"`
	Data         map[string]string `json:"data" bson:"data"`
	RetryCount   int               `json:"retryCount" bson:"retryCount"`
	Sent         bool              `json:"sent" bson:"sent"`
	ErrorMessage string            `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
}
