package worker

import (
	"errors"

	"notification-worker/internal/dispatcher"
)

// Classification is the terminal outcome of one processing attempt.
type Classification int

const (
	Delivered Classification = iota
	Malformed
	PermanentFailure
	TransientFailure
)

func (c Classification) String() string {
	switch c {
	case Delivered:
		return "delivered"
	case Malformed:
		return "malformed"
	case PermanentFailure:
		return "permanent_failure"
	case TransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// AckAction is the acknowledgment the broker receives for a delivery.
// Every delivery gets exactly one.
type AckAction int

const (
	Ack         AckAction = iota // positive acknowledge, message done
	Reject                       // drop without requeue (poison payload)
	NackDrop                     // negative outcome, no requeue
	NackRequeue                  // retriable, back to the queue
)

// Classify maps a decode result and a delivery result onto a terminal
// classification. Pure function, no broker access.
func Classify(decodeErr, deliverErr error) Classification {
	switch {
	case decodeErr != nil:
		return Malformed
	case deliverErr == nil:
		return Delivered
	case errors.Is(deliverErr, dispatcher.ErrUnsupportedType),
		errors.Is(deliverErr, dispatcher.ErrMissingDataKey):
		return PermanentFailure
	default:
		return TransientFailure
	}
}

// AckAction returns the acknowledgment implied by the classification.
// Malformed payloads can never succeed on redelivery and are rejected
// outright so they cannot loop as poison messages. Permanent business
// failures are nacked without requeue, keeping the negative outcome
// distinguishable from a plain reject for monitoring. Only transient
// infrastructure faults go back to the queue.
func (c Classification) AckAction() AckAction {
	switch c {
	case Delivered:
		return Ack
	case Malformed:
		return Reject
	case PermanentFailure:
		return NackDrop
	default:
		return NackRequeue
	}
}
