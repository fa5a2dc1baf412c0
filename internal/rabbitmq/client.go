package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Fixed notification topology. The consumer declares it on start so the
// worker can run against a fresh broker.
const (
	Exchange   = "notification_exchange"
	Queue      = "notification_queue"
	RoutingKey = "notifications"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string // default "/"
}

func (c Config) url() string {
	vhost := c.VHost
	if vhost == "" || vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, vhost)
}

type Delivery = amqp.Delivery

// Client owns the AMQP connection and channel for the lifetime of the
// worker. Nothing outside the owning component touches them.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to the broker, declares the notification topology and caps
// the channel at one unacknowledged delivery in flight.
func Dial(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.url())
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := channel.QueueDeclare(
		Queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := channel.QueueBind(Queue, RoutingKey, Exchange, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	// Prefetch one unacknowledged delivery per consumer, not global.
	if err := channel.Qos(1, 0, false); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Client{conn: conn, channel: channel}, nil
}

// Consume registers this client as a receiver on the notification queue with
// explicit acknowledgments. The returned channel closes when the underlying
// connection is lost.
func (c *Client) Consume() (<-chan Delivery, error) {
	return c.channel.Consume(
		Queue, // queue
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
}

// Publish sends a persistent JSON payload through the notification exchange.
// Used by the ops publish command; the upstream producer does the same.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	return c.channel.PublishWithContext(ctx,
		Exchange,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (c *Client) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
