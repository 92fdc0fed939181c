package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunStarted      MessageType = "run.started"
	MessageTypeOutcomeRecorded MessageType = "outcome.recorded"
	MessageTypeRunFinished     MessageType = "run.finished"
)

// publishFunc отправляет одно сообщение. Подменяется в тестах.
type publishFunc func(ctx context.Context, exchange Exchange, key RoutingKey, msg amqp.Publishing) error

// Publisher публикует результаты в RabbitMQ.
//
// Реализует orchestrator.Recorder.
type Publisher struct {
	publish publishFunc
	logger  *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		publish: func(ctx context.Context, exchange Exchange, key RoutingKey, msg amqp.Publishing) error {
			return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
				return ch.PublishWithContext(
					ctx,
					string(exchange), // exchange
					string(key),      // routing key
					false,            // mandatory
					false,            // immediate
					msg,
				)
			})
		},
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunPayload — payload для run.started / run.finished.
type RunPayload struct {
	Run domain.SuiteRun `json:"run"`
}

// OutcomePayload — payload для outcome.recorded.
type OutcomePayload struct {
	Outcome domain.RuleOutcome `json:"outcome"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.publish(ctx, exchange, routingKey, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// RecordRun публикует run.started для RUNNING и run.finished для завершённого прогона.
func (p *Publisher) RecordRun(ctx context.Context, run *domain.SuiteRun) error {
	msgType, key := MessageTypeRunStarted, RoutingKeyRunStarted
	if run.IsFinished() {
		msgType, key = MessageTypeRunFinished, RoutingKeyRunFinished
	}

	return p.Publish(ctx, ExchangeResults, key, NewMessage(msgType, RunPayload{Run: *run}))
}

// RecordOutcome публикует outcome.recorded.
func (p *Publisher) RecordOutcome(ctx context.Context, outcome *domain.RuleOutcome) error {
	msg := NewMessage(MessageTypeOutcomeRecorded, OutcomePayload{Outcome: *outcome})
	return p.Publish(ctx, ExchangeResults, RoutingKeyOutcomeRecorded, msg)
}
