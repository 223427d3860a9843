package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/relieflink/relief-gateway/middleware"
)

const exchangeName = "relief.events"

// Publisher emits operational events. Handlers publish best-effort and never
// fail the request on a publish error.
type Publisher interface {
	PublishSessionAnomaly(ctx context.Context, email, userType string) error
	PublishMaintenance(ctx context.Context, action, actor string) error
}

// RabbitMQPublisher publishes to the relief.events topic exchange.
type RabbitMQPublisher struct {
	ch *amqp.Channel
}

func NewRabbitMQPublisher(ch *amqp.Channel) *RabbitMQPublisher {
	return &RabbitMQPublisher{ch: ch}
}

// NewRabbitMQConnection creates and verifies a RabbitMQ connection and
// declares the relief.events topic exchange.
func NewRabbitMQConnection(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return conn, ch, nil
}

type sessionAnomalyMessage struct {
	Type     string `json:"type"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
}

// PublishSessionAnomaly reports an authenticated user whose stored role maps
// to no known dashboard.
func (p *RabbitMQPublisher) PublishSessionAnomaly(ctx context.Context, email, userType string) error {
	msg := sessionAnomalyMessage{
		Type:     "session_anomaly",
		Email:    email,
		UserType: userType,
	}
	return p.publish(ctx, "session.anomaly", msg)
}

type maintenanceMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Actor  string `json:"actor"`
}

// PublishMaintenance records a destructive admin maintenance action for audit.
func (p *RabbitMQPublisher) PublishMaintenance(ctx context.Context, action, actor string) error {
	msg := maintenanceMessage{
		Type:   "maintenance",
		Action: action,
		Actor:  actor,
	}
	return p.publish(ctx, "admin.maintenance", msg)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	headers := make(amqp.Table)
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		headers["X-Request-ID"] = requestID
	}

	return p.ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers:     headers,
		},
	)
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishSessionAnomaly(context.Context, string, string) error { return nil }
func (NoopPublisher) PublishMaintenance(context.Context, string, string) error    { return nil }
