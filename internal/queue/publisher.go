package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/runclub-api/internal/model"
)

// UserRegisteredQueue is the durable queue carrying UserRegisteredEvent.
const UserRegisteredQueue = "user.registered"

// Publisher sends domain events to RabbitMQ.  Each publish opens its own
// connection; registration volume does not justify a pooled channel.
type Publisher struct {
	URL string
}

func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// NotifyRegistered publishes a UserRegisteredEvent for u.  Errors are
// logged and returned so the caller can choose to ignore them.
func (p *Publisher) NotifyRegistered(ctx context.Context, u model.User) error {
	return p.publish(ctx, UserRegisteredQueue, UserRegisteredEvent{
		UserID:       u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Role:         u.PrimaryRole().String(),
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
