package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const reservationPaidQueue = "reservation.paid"

// Publisher sends domain events to RabbitMQ. Publishing happens strictly
// after the database commit and is fire-and-forget: errors are logged and
// returned, callers may ignore them without affecting sale state.
type Publisher struct {
	url string
	log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{
		url: url,
		log: log.With(zap.String("component", "queue_publisher")),
	}
}

// ReservationPaid publishes a ReservationPaidEvent to the reservation.paid
// queue. Messages are persistent so they survive broker restarts.
func (p *Publisher) ReservationPaid(ctx context.Context, event ReservationPaidEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("Failed to dial broker", zap.Error(err))
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("Failed to open channel", zap.Error(err))
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare, durable queue.
	if _, err := ch.QueueDeclare(
		reservationPaidQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		p.log.Warn("Failed to declare queue", zap.Error(err))
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                   // default exchange
		reservationPaidQueue, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		pub,
	); err != nil {
		p.log.Warn("Failed to publish event",
			zap.Error(err),
			zap.String("reservation_id", event.ReservationID),
		)
		return fmt.Errorf("publish event: %w", err)
	}

	p.log.Info("Reservation paid event published",
		zap.String("reservation_id", event.ReservationID),
		zap.String("order_id", event.OrderID),
	)

	return nil
}
