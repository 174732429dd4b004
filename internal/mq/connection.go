// Package mq wires the engine to the AMQP broker carrying the inbound
// submission-event stream (spec.md §4.1's "inbound JSON event stream").
// It owns the connection and channel lifecycle; message shape and
// filtering belong to internal/ingest.
package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/depositcore/engine/internal/platform/logx"
)

// Connection is a managed AMQP connection plus a single channel, with
// automatic reconnect on an unexpected close. Callers obtain deliveries
// through Consume and acknowledge them explicitly (client-acknowledge
// mode per spec.md §5 — a delivery is only acked once C8 has durably
// scheduled its deposit task, never merely received).
type Connection struct {
	url    string
	logger logx.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial opens the initial AMQP connection and channel. Reconnection on
// later failures is handled lazily by Consume's caller calling Reconnect
// and then Consume again after observing its delivery channel close.
func Dial(ctx context.Context, url string, logger logx.Logger) (*Connection, error) {
	c := &Connection{url: url, logger: logger}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Connection) connect(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("mq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mq: open channel: %w", err)
	}

	// Prefetch 1: a worker pulls the next delivery only once it has
	// finished scheduling the previous one, bounding in-flight unacked
	// messages to the dispatcher's own backpressure (spec.md §5).
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("mq: set qos: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()

	return nil
}

// Consume starts a client-acknowledge consumer on queueName and returns
// its delivery channel. The channel closes when the underlying AMQP
// channel closes (broker disconnect, cancel, or Connection.Close); the
// caller is responsible for detecting that and calling Reconnect before
// retrying Consume.
func (c *Connection) Consume(ctx context.Context, queueName, consumerTag string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	deliveries, err := ch.ConsumeWithContext(ctx, queueName, consumerTag,
		false, // autoAck: false — client-acknowledge mode
		false, // exclusive
		false, // noLocal (unsupported by RabbitMQ, kept false)
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("mq: consume %s: %w", queueName, err)
	}

	return deliveries, nil
}

// Reconnect tears down the current connection (if still open) and
// establishes a fresh one, for use after Consume's delivery channel has
// closed unexpectedly.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	conn, ch := c.conn, c.channel
	c.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}

	if conn != nil {
		_ = conn.Close()
	}

	if c.logger != nil {
		c.logger.Warn("mq: reconnecting after channel loss")
	}

	return c.connect(ctx)
}

// Close shuts the channel and connection down. Safe to call once during
// orderly shutdown.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = err
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
