package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"notification-worker/internal/model"
)

var (
	// ErrUnsupportedType marks events whose type the worker cannot deliver.
	// Non-retriable: redelivery cannot make the type known.
	ErrUnsupportedType = errors.New("unsupported notification type")
	// ErrMissingDataKey marks events missing a data key their type requires.
	// Non-retriable; the provider is never called.
	ErrMissingDataKey = errors.New("missing required data key")
)

// requiredKeys lists the data keys each supported type must carry before a
// delivery is attempted.
var requiredKeys = map[model.NotificationType][]string{
	model.TypeUserRegistration: {"UserEmail"},
	model.TypeOrderCreated:     {"UserEmail", "OrderId"},
}

// Dispatcher validates an event against its type and attempts delivery
// through the configured provider, at most once per processing attempt.
type Dispatcher struct {
	provider Provider
}

func New(provider Provider) *Dispatcher {
	return &Dispatcher{provider: provider}
}

// Dispatch attempts delivery of the event. Validation failures return
// ErrUnsupportedType or ErrMissingDataKey without touching the provider;
// any provider error is passed through as-is (treated as retriable by the
// caller, since providers do not distinguish transient from permanent).
func (d *Dispatcher) Dispatch(ctx context.Context, ev *model.NotificationEvent) error {
	keys, ok := requiredKeys[ev.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, ev.Type)
	}

	for _, k := range keys {
		if ev.Data[k] == "" {
			return fmt.Errorf("%w: %s", ErrMissingDataKey, k)
		}
	}

	return d.provider.Send(ctx, composeEmail(ev))
}

// composeEmail renders the per-type mail. Only called after validation, so
// the required keys are present.
func composeEmail(ev *model.NotificationEvent) Email {
	name := ev.Data["UserName"]
	if name == "" {
		name = "Customer"
	}

	switch ev.Type {
	case model.TypeOrderCreated:
		orderID := ev.Data["OrderId"]
		return Email{
			To:      ev.Data["UserEmail"],
			Subject: fmt.Sprintf("Order #%s Created", orderID),
			Body: fmt.Sprintf(`<html><body>
<h2>Hello %s!</h2>
<p>Your order #%s has been created successfully.</p>
<p>You can track its status on our platform.</p>
<br/>
<p>Best regards,<br/>The Notifications Team</p>
</body></html>`, name, orderID),
		}
	default: // model.TypeUserRegistration
		return Email{
			To:      ev.Data["UserEmail"],
			Subject: "Welcome to our platform!",
			Body: fmt.Sprintf(`<html><body>
<h2>Hello %s!</h2>
<p>Your account has been created successfully.</p>
<p>You can now enjoy all of our features.</p>
<br/>
<p>Best regards,<br/>The Notifications Team</p>
</body></html>`, name),
		}
	}
}
