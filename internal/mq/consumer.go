package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultRetryDelay = time.Second

// Handler обрабатывает одно сообщение результатов.
// Ошибка означает повтор доставки (один раз), затем DLQ.
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — разобранное сообщение и сведения о доставке.
type Delivery struct {
	Message     Message
	RoutingKey  string
	Redelivered bool
}

// ackAction — что сделать с доставкой после обработки.
type ackAction int

const (
	actionAck ackAction = iota
	actionRetry
	actionDeadLetter
)

func (a ackAction) String() string {
	switch a {
	case actionAck:
		return "ack"
	case actionRetry:
		return "retry"
	default:
		return "dead-letter"
	}
}

// dispositionFor решает судьбу доставки.
// Битое сообщение и повторно упавшая доставка уходят в DLQ, первая ошибка — в повтор.
func dispositionFor(malformed bool, handlerErr error, redelivered bool) ackAction {
	switch {
	case malformed:
		return actionDeadLetter
	case handlerErr == nil:
		return actionAck
	case redelivered:
		return actionDeadLetter
	default:
		return actionRetry
	}
}

func (a ackAction) apply(raw amqp.Delivery) error {
	switch a {
	case actionAck:
		return raw.Ack(false)
	case actionRetry:
		return raw.Nack(false, true)
	default:
		return raw.Nack(false, false)
	}
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — имя очереди. Игнорируется, если задан Declare.
	Queue string

	// Declare объявляет очередь и возвращает её имя.
	// Вызывается при каждой подписке, например DeclareWatchQueue.
	Declare func(ch *amqp.Channel) (string, error)

	// Handler
	Handler Handler

	// Prefetch (<= 0 → 1)
	Prefetch int

	// RetryDelay — пауза перед повторной подпиской после разрыва.
	RetryDelay time.Duration

	// Logger
	Logger *slog.Logger
}

// Consumer читает результаты из очереди и отдаёт их Handler-у.
type Consumer struct {
	conn   *Connection
	cfg    ConsumerConfig
	logger *slog.Logger
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{conn: conn, cfg: cfg, logger: logger}
}

// Run потребляет сообщения до отмены ctx и возвращает ctx.Err().
// Потеря канала не ошибка: Run ждёт переподключения и подписывается заново.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		queue, deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Warn("subscribe failed", "queue", queue, "error", err)
		} else {
			c.logger.Info("consumer started", "queue", queue)
			c.drain(ctx, queue, deliveries)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("delivery stream interrupted", "queue", queue, "error", ErrDeliveriesClosed)
		}

		if err := c.waitReady(ctx); err != nil {
			return err
		}
	}
}

// subscribe объявляет очередь (если нужно) и начинает потребление.
func (c *Consumer) subscribe() (string, <-chan amqp.Delivery, error) {
	queue := c.cfg.Queue

	ch := c.conn.Channel()
	if ch == nil {
		return queue, nil, ErrNoChannel
	}

	if c.cfg.Declare != nil {
		name, err := c.cfg.Declare(ch)
		if err != nil {
			return queue, nil, err
		}
		queue = name
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return queue, nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return queue, nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return queue, deliveries, nil
}

// drain обрабатывает доставки, пока поток открыт и ctx жив.
func (c *Consumer) drain(ctx context.Context, queue string, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, queue, raw)
		}
	}
}

// waitReady выдерживает паузу и ждёт доступного канала.
func (c *Consumer) waitReady(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.RetryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.Ready():
		return nil
	}
}

// handle разбирает доставку, вызывает Handler и подтверждает её.
func (c *Consumer) handle(ctx context.Context, queue string, raw amqp.Delivery) ackAction {
	var msg Message
	decodeErr := json.Unmarshal(raw.Body, &msg)

	var handlerErr error
	if decodeErr == nil {
		handlerErr = c.cfg.Handler(ctx, &Delivery{
			Message:     msg,
			RoutingKey:  raw.RoutingKey,
			Redelivered: raw.Redelivered,
		})
	}

	action := dispositionFor(decodeErr != nil, handlerErr, raw.Redelivered)
	switch {
	case decodeErr != nil:
		c.logger.Error("malformed result message", "queue", queue, "error", decodeErr, "body", string(raw.Body))
	case handlerErr != nil:
		c.logger.Error("result handler failed",
			"queue", queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"action", action,
			"error", handlerErr,
		)
	default:
		c.logger.Debug("result handled", "queue", queue, "message_id", msg.ID, "type", msg.Type)
	}

	if err := action.apply(raw); err != nil {
		c.logger.Warn("failed to settle delivery", "queue", queue, "action", action, "error", err)
	}
	return action
}

// ParsePayload приводит Payload (после JSON-декодирования это map) к типу T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload %s: %w", msg.Type, err)
	}
	return result, nil
}
