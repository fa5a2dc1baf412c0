package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notification-worker/internal/metrics"
	"notification-worker/internal/model"
	"notification-worker/internal/rabbitmq"
	"notification-worker/internal/repository"
)

// ErrDeliveryChannelClosed is returned by Run when the broker closes the
// delivery channel (connection loss). The process supervisor restarts us.
var ErrDeliveryChannelClosed = errors.New("delivery channel closed")

// Dispatcher attempts delivery of a decoded event, at most once per call.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *model.NotificationEvent) error
}

// acknowledger is the slice of rabbitmq.Delivery the consumer needs to
// apply an AckAction.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Reject(requeue bool) error
}

// Consumer receives raw deliveries from the bound queue one at a time and
// drives decode, delivery, audit and acknowledgment for each. It owns the
// broker client and the optional audit repository for the worker lifetime.
type Consumer struct {
	queue    *rabbitmq.Client
	dispatch Dispatcher
	audit    repository.AuditRepository // nil disables persistence
	log      *zap.Logger
	now      func() time.Time
}

func NewConsumer(queue *rabbitmq.Client, dispatch Dispatcher, audit repository.AuditRepository, log *zap.Logger) *Consumer {
	if audit == nil {
		log.Warn("audit store not configured, outcome records will not be persisted")
	}
	return &Consumer{
		queue:    queue,
		dispatch: dispatch,
		audit:    audit,
		log:      log,
		now:      time.Now,
	}
}

// Run registers the consumer and blocks processing deliveries until ctx is
// cancelled. An in-flight delivery left unacknowledged at shutdown is
// redelivered by the broker.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.queue.Consume()
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	c.log.Info("worker started, waiting for deliveries",
		zap.String("queue", rabbitmq.Queue),
		zap.String("exchange", rabbitmq.Exchange),
	)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("worker stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveryChannelClosed
			}
			c.handle(ctx, d)
		}
	}
}

// decision is the handler's verdict for one delivery: the classification
// plus the terminal event to audit (nil when the payload never decoded).
type decision struct {
	class Classification
	event *model.NotificationEvent
}

// handle drives one delivery end to end and issues exactly one
// acknowledgment action for it.
func (c *Consumer) handle(ctx context.Context, d rabbitmq.Delivery) {
	dec := c.processDelivery(ctx, d.Body)

	c.recordOutcome(ctx, dec)

	if err := applyAck(d, dec.class.AckAction()); err != nil {
		c.log.Error("failed to acknowledge delivery",
			zap.Uint64("delivery_tag", d.DeliveryTag),
			zap.Error(err),
		)
	}
}

// processDelivery maps a raw payload and the collaborators' results onto a
// decision. It never touches broker state. A panic anywhere in processing
// counts as an unexpected runtime fault and classifies as transient.
func (c *Consumer) processDelivery(ctx context.Context, body []byte) (dec decision) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("unexpected fault while processing delivery", zap.Any("fault", r))
			dec.class = TransientFailure
			if dec.event != nil {
				dec.event.Timestamp = c.now().UTC()
				dec.event.Sent = false
				dec.event.ErrorMessage = fmt.Sprintf("unexpected fault: %v", r)
			}
		}
	}()

	ev, decodeErr := model.Decode(body)
	if decodeErr != nil {
		c.log.Error("failed to decode event payload", zap.Error(decodeErr))
		return decision{class: Malformed}
	}
	dec.event = ev

	c.log.Info("processing notification",
		zap.String("event_id", ev.ID),
		zap.String("type", ev.Type.String()),
	)

	deliverErr := c.dispatch.Dispatch(ctx, ev)

	ev.Timestamp = c.now().UTC()
	ev.Sent = deliverErr == nil
	if deliverErr != nil {
		ev.ErrorMessage = deliverErr.Error()
	} else {
		ev.ErrorMessage = ""
	}

	dec.class = Classify(nil, deliverErr)
	return dec
}

// recordOutcome logs the terminal classification and appends the outcome
// record, best effort. A persistence failure never alters the
// acknowledgment already decided.
func (c *Consumer) recordOutcome(ctx context.Context, dec decision) {
	metrics.EventsProcessed.WithLabelValues(dec.class.String()).Inc()

	if dec.event == nil {
		return
	}

	fields := []zap.Field{
		zap.String("event_id", dec.event.ID),
		zap.String("type", dec.event.Type.String()),
		zap.String("classification", dec.class.String()),
	}
	switch dec.class {
	case Delivered:
		c.log.Info("notification delivered", fields...)
	case TransientFailure:
		c.log.Warn("notification delivery failed, requeueing",
			append(fields, zap.String("error", dec.event.ErrorMessage))...)
	default:
		c.log.Error("notification delivery failed",
			append(fields, zap.String("error", dec.event.ErrorMessage))...)
	}

	if c.audit == nil {
		return
	}
	if err := c.audit.Append(ctx, dec.event); err != nil {
		metrics.AuditAppendFailures.Inc()
		c.log.Error("failed to append audit record",
			zap.String("event_id", dec.event.ID),
			zap.Error(err),
		)
	}
}

// applyAck maps the decided action onto the AMQP acknowledgment protocol.
func applyAck(d acknowledger, action AckAction) error {
	switch action {
	case Ack:
		return d.Ack(false)
	case Reject:
		return d.Reject(false)
	case NackDrop:
		return d.Nack(false, false)
	case NackRequeue:
		return d.Nack(false, true)
	default:
		return fmt.Errorf("unknown ack action %d", action)
	}
}
