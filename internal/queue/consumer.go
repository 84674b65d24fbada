package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cleft-care-backend/internal/lib/logger/sl"
	"github.com/iliyamo/cleft-care-backend/internal/notify"
)

// Sender performs the actual delivery of a consumed OTP mail.
type Sender interface {
	SendOTP(ctx context.Context, email, code string, purpose notify.Purpose) error
}

// StartOTPMailConsumer connects to RabbitMQ, declares queueName (durable) and
// delivers every OTPMailEvent through sender.  It reconnects with backoff
// and only returns when ctx is cancelled.
func StartOTPMailConsumer(ctx context.Context, log *slog.Logger, url, queueName string, sender Sender) error {
	log = log.With(slog.String("component", "otp-mail-consumer"), slog.String("queue", queueName))

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", sl.Err(err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, log, conn, queueName, sender)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", sl.Err(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, log *slog.Logger, conn *amqp.Connection, queueName string, sender Sender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Warn("set QoS failed", sl.Err(err))
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			process(ctx, log, sender, d.Body, d)
		}
	}
}

// acknowledger is the part of amqp.Delivery that settles a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// process delivers one message and settles it.  Failed messages are
// rejected without requeue so a poison message cannot loop forever.
func process(ctx context.Context, log *slog.Logger, sender Sender, body []byte, d acknowledger) {
	if err := handleMessage(ctx, sender, body); err != nil {
		log.Error("handle message failed", sl.Err(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func handleMessage(ctx context.Context, sender Sender, body []byte) error {
	var ev OTPMailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" || ev.Code == "" {
		return errors.New("event missing email or code")
	}
	return sender.SendOTP(ctx, ev.Email, ev.Code, ev.Purpose)
}
