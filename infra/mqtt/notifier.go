package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/fooddispatch/core/model"
	"github.com/kilianp07/fooddispatch/core/monitoring"
	"github.com/kilianp07/fooddispatch/infra/logger"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 100 * time.Millisecond
)

// AssignmentMessage is the payload a driver app receives when an order is
// assigned to it.
type AssignmentMessage struct {
	Type         string         `json:"type"`
	AssignmentID string         `json:"assignment_id"`
	OrderID      string         `json:"order_id"`
	DriverID     string         `json:"driver_id"`
	Pickup       model.Location `json:"pickup"`
	Delivery     model.Location `json:"delivery"`
	DistanceKm   float64        `json:"distance_km"`
	Batched      bool           `json:"batched"`
	AssignedAt   int64          `json:"assigned_at"`
}

// AssignmentNotifier publishes new assignments on the driver topic
// {prefix}driver/{id}/assignment.
type AssignmentNotifier struct {
	cli        pahoClient
	cfg        Config
	maxRetries int
	backoff    time.Duration
	monitor    monitoring.Monitor
	logger     logger.Logger
}

// NewAssignmentNotifier connects to the broker.
func NewAssignmentNotifier(cfg Config) (*AssignmentNotifier, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	n := &AssignmentNotifier{
		cli:        c,
		cfg:        cfg,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		monitor:    monitoring.NopMonitor{},
		logger:     log,
	}
	if n.maxRetries <= 0 {
		n.maxRetries = defaultMaxRetries
	}
	if n.backoff <= 0 {
		n.backoff = defaultBackoff
	}
	return n, nil
}

// SetMonitor reports publish failures that exhausted their retries.
func (n *AssignmentNotifier) SetMonitor(m monitoring.Monitor) {
	if m != nil {
		n.monitor = m
	}
}

// Topic returns the assignment topic of a driver.
func (n *AssignmentNotifier) Topic(driverID string) string {
	return fmt.Sprintf("%sdriver/%s/assignment", n.cfg.TopicPrefix, driverID)
}

// NotifyAssignment publishes the assignment with exponential backoff between
// attempts. Cancelling ctx stops the retries.
func (n *AssignmentNotifier) NotifyAssignment(ctx context.Context, a model.Assignment) error {
	payload, err := json.Marshal(AssignmentMessage{
		Type:         "assignment",
		AssignmentID: a.ID,
		OrderID:      a.OrderID,
		DriverID:     a.DriverID,
		Pickup:       a.Pickup,
		Delivery:     a.Delivery,
		DistanceKm:   a.Metadata.DistanceKm,
		Batched:      a.Metadata.IsBatched,
		AssignedAt:   a.AssignedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	topic := n.Topic(a.DriverID)
	qos := n.cfg.qos("assignment")

	var publishErr error
retry:
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, qos, false, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			n.logger.Infof("sent assignment %s to %s", a.ID, topic)
			return nil
		}
		n.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == n.maxRetries {
			break
		}
		t := time.NewTimer(n.backoff * time.Duration(1<<attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			publishErr = ctx.Err()
			break retry
		case <-t.C:
		}
	}
	n.monitor.CaptureException(publishErr, map[string]string{
		"module":    "mqtt",
		"driver_id": a.DriverID,
		"order_id":  a.OrderID,
	})
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (n *AssignmentNotifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
