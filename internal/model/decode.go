package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEvent marks payloads that can never succeed on redelivery:
// invalid JSON, or a record missing its structural fields (id, type).
var ErrMalformedEvent = errors.New("malformed notification event")

// Decode parses a raw queue payload into a NotificationEvent. Unknown JSON
// fields are ignored. Data contents are not validated here; required keys
// depend on the type and are checked at delivery time.
func Decode(body []byte) (*NotificationEvent, error) {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedEvent)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	return &ev, nil
}
