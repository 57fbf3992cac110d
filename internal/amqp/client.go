// Package amqp carries the asynchronous side channels of the ledger: backup
// sync messages for the worker and password-reset delivery requests.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// errMalformedPayload marks messages that can never decode. Requeueing them
// would loop forever, so they are dropped like malformed envelopes.
var errMalformedPayload = errors.New("malformed payload")

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewClient connects and declares a durable direct exchange plus the queue,
// bound with the queue name as routing key.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) publish(ctx context.Context, kind string, payload any) error {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return err
	}
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}

	slog.InfoContext(ctx, "Published message",
		"kind", kind,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishTransactionSync enqueues a backup export for one transaction.
func (c *Client) PublishTransactionSync(ctx context.Context, id, userID int64) error {
	return c.publish(ctx, KindTransactionSync, TransactionSyncMessage{ID: id, UserID: userID})
}

// PublishTransactionDelete enqueues a backup annotation for a removed transaction.
func (c *Client) PublishTransactionDelete(ctx context.Context, id, userID int64) error {
	return c.publish(ctx, KindTransactionDelete, TransactionDeleteMessage{ID: id, UserID: userID})
}

// PublishPasswordReset hands a reset request to the delivery channel.
func (c *Client) PublishPasswordReset(ctx context.Context, email string) error {
	return c.publish(ctx, KindPasswordReset, PasswordResetMessage{Email: email, RequestedAt: time.Now().UTC()})
}

// Handlers routes consumed envelopes by kind. Nil entries skip that kind.
type Handlers struct {
	TransactionSync   func(ctx context.Context, msg *TransactionSyncMessage) error
	TransactionDelete func(ctx context.Context, msg *TransactionDeleteMessage) error
	PasswordReset     func(ctx context.Context, msg *PasswordResetMessage) error
}

// Consume processes queue messages until ctx is done. Malformed envelopes
// and undecodable payloads are rejected without requeue; handler failures
// are requeued.
func (c *Client) Consume(ctx context.Context, handlers Handlers) error {
	deliveries, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := c.dispatch(ctx, env, handlers); err != nil {
				requeue := !errors.Is(err, errMalformedPayload)
				slog.ErrorContext(ctx, "Failed to handle message", "kind", env.Kind, "requeue", requeue, "error", err)
				delivery.Nack(false, requeue)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, env *Envelope, handlers Handlers) error {
	switch env.Kind {
	case KindTransactionSync:
		if handlers.TransactionSync == nil {
			return nil
		}
		var msg TransactionSyncMessage
		if err := env.Decode(&msg); err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		return handlers.TransactionSync(ctx, &msg)
	case KindTransactionDelete:
		if handlers.TransactionDelete == nil {
			return nil
		}
		var msg TransactionDeleteMessage
		if err := env.Decode(&msg); err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		return handlers.TransactionDelete(ctx, &msg)
	case KindPasswordReset:
		if handlers.PasswordReset == nil {
			return nil
		}
		var msg PasswordResetMessage
		if err := env.Decode(&msg); err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		return handlers.PasswordReset(ctx, &msg)
	default:
		slog.WarnContext(ctx, "Unknown message kind", "kind", env.Kind)
		return nil
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
