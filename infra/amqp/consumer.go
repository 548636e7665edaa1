// Package amqp feeds order-placed events from RabbitMQ into the dispatch
// manager.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kilianp07/fooddispatch/core/dispatch"
	"github.com/kilianp07/fooddispatch/core/logger"
)

// Config describes the broker topology the consumer binds to.
type Config struct {
	URL         string `json:"url"`
	Exchange    string `json:"exchange"`
	Queue       string `json:"queue"`
	RoutingKey  string `json:"routing_key"`
	Prefetch    int    `json:"prefetch"`
	ConsumerTag string `json:"consumer_tag"`
	// MaxReconnects bounds consecutive failed sessions before Run gives up.
	// A negative value disables reconnecting.
	MaxReconnects    int `json:"max_reconnects"`
	ReconnectDelayMS int `json:"reconnect_delay_ms"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Exchange == "" {
		c.Exchange = "orders_topic"
	}
	if c.Queue == "" {
		c.Queue = "dispatch_orders"
	}
	if c.RoutingKey == "" {
		c.RoutingKey = "order.placed"
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 10
	}
	if c.ConsumerTag == "" {
		c.ConsumerTag = "dispatcher"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 10
	}
	if c.ReconnectDelayMS <= 0 {
		c.ReconnectDelayMS = 2000
	}
}

// Validate checks the broker address.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("amqp url is required")
	}
	return nil
}

// OrderPlaced is the message body published when a customer places an order.
type OrderPlaced struct {
	OrderID string `json:"order_id"`
}

// Enqueuer accepts dispatch requests. It reports false once it stopped
// accepting work.
type Enqueuer interface {
	Enqueue(req dispatch.Request) bool
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

var dial = func(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	c := &connection{conn: conn, ch: ch}
	return ch, c.close, nil
}

func (c *connection) close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// Consumer turns order-placed deliveries into dispatch requests.
type Consumer struct {
	cfg    Config
	target Enqueuer
	log    logger.Logger
}

// NewConsumer builds a consumer; Run connects.
func NewConsumer(cfg Config, target Enqueuer, log logger.Logger) *Consumer {
	cfg.SetDefaults()
	return &Consumer{cfg: cfg, target: target, log: log}
}

// Run consumes until ctx is done or the target stops accepting requests.
// A lost connection is redialled after ReconnectDelayMS; Run returns an
// error once MaxReconnects sessions in a row failed without a delivery.
func (c *Consumer) Run(ctx context.Context) error {
	delay := time.Duration(c.cfg.ReconnectDelayMS) * time.Millisecond
	failures := 0
	for {
		received, err := c.session(ctx)
		if err == nil {
			return nil
		}
		if received {
			failures = 0
		}
		failures++
		if failures > max(c.cfg.MaxReconnects, 0) {
			return fmt.Errorf("amqp unavailable after %d attempts: %w", failures, err)
		}
		c.log.Warnf("amqp session ended: %v, reconnecting in %s (%d/%d)", err, delay, failures, c.cfg.MaxReconnects)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// session declares the topology and consumes until ctx is done, the delivery
// channel closes, or the target stops accepting requests. received reports
// whether at least one delivery arrived; a nil error means a clean stop.
func (c *Consumer) session(ctx context.Context) (received bool, err error) {
	ch, closeFn, err := dial(c.cfg.URL)
	if err != nil {
		return false, fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = closeFn() }()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return false, fmt.Errorf("declare %s: %w", c.cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return false, fmt.Errorf("queue declare %s: %w", c.cfg.Queue, err)
	}
	if err := ch.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return false, fmt.Errorf("queue bind %s: %w", c.cfg.Queue, err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return false, fmt.Errorf("qos: %w", err)
	}
	msgs, err := ch.Consume(c.cfg.Queue, c.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return false, fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	c.log.Infof("consuming %s from %s (prefetch=%d)", c.cfg.RoutingKey, c.cfg.Queue, c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return received, nil
		case d, ok := <-msgs:
			if !ok {
				return received, errors.New("amqp delivery channel closed")
			}
			received = true
			if !c.handle(d) {
				return received, nil
			}
		}
	}
}

// handle acks accepted requests, dead-letters malformed ones and requeues
// everything once the target is closed. It returns false in that last case.
func (c *Consumer) handle(d amqp.Delivery) bool {
	var msg OrderPlaced
	if err := json.Unmarshal(d.Body, &msg); err != nil || strings.TrimSpace(msg.OrderID) == "" {
		c.log.Warnf("dropping malformed order message %q: %v", d.MessageId, err)
		_ = d.Nack(false, false)
		return true
	}
	if !c.target.Enqueue(dispatch.Request{OrderID: msg.OrderID}) {
		_ = d.Nack(false, true)
		return false
	}
	c.log.Debugw("order enqueued", map[string]any{"order_id": msg.OrderID})
	_ = d.Ack(false)
	return true
}
