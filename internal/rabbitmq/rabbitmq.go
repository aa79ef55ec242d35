package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notehd/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDrop tells the consumer to discard a message instead of requeueing it.
var ErrDrop = errors.New("drop message")

// Handler processes one message body. nil acks, ErrDrop nacks without requeue,
// any other error puts the message back on the queue once. A redelivered message
// that fails again is dropped.
type Handler func(ctx context.Context, body []byte) error

type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func New(urlForConn string, queueName string) (*RabbitMQClient, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQClient) SendMessage(ctx context.Context, msg models.EmailMessage) error {
	const op = "rabbitmq.SendMessage"

	pub, err := encode(msg, time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.channel.PublishWithContext(ctx, "", r.queue.Name, false, false, pub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * StartReading consumes the queue with manual acks until ctx is done or the channel closes
func (r *RabbitMQClient) StartReading(ctx context.Context, prefetch int, handler Handler) error {
	const op = "rabbitmq.StartReading"

	if prefetch > 0 {
		if err := r.channel.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	deliveries, err := r.channel.ConsumeWithContext(
		ctx, r.queue.Name, "", false, false, false, false, nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}

				return fmt.Errorf("%s: delivery channel closed", op)
			}

			if err := settle(ctx, d, handler); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}
}

func (r *RabbitMQClient) Close() {
	_ = r.channel.Close()
	_ = r.conn.Close()
}

func encode(msg models.EmailMessage, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, err
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
	}, nil
}

// settle runs the handler and acknowledges the delivery according to its result.
func settle(ctx context.Context, d amqp.Delivery, handler Handler) error {
	err := handler(ctx, d.Body)

	switch {
	case err == nil:
		return d.Ack(false)
	case errors.Is(err, ErrDrop), d.Redelivered:
		return d.Nack(false, false)
	default:
		return d.Nack(false, true)
	}
}
