package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/SmartChainFlow/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunStarted   MessageType = "run.started"
	MessageTypeRunFinished  MessageType = "run.finished"
	MessageTypeStepStarted  MessageType = "step.started"
	MessageTypeStepFinished MessageType = "step.finished"
)

// Message — конверт события.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// RunID — run, к которому относится событие.
	RunID uuid.UUID `json:"run_id"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, runID uuid.UUID, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		RunID:     runID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// RunStartedPayload — payload события run.started.
type RunStartedPayload struct {
	Chain   string   `json:"chain,omitempty"`
	StepIDs []string `json:"step_ids"`
}

// StepStartedPayload — payload события step.started.
type StepStartedPayload struct {
	StepID    string    `json:"step_id"`
	DependsOn []string  `json:"depends_on,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// RunFinishedPayload — payload события run.finished.
type RunFinishedPayload struct {
	Chain      string           `json:"chain,omitempty"`
	Status     domain.RunStatus `json:"status"`
	Summary    domain.Summary   `json:"summary"`
	BuildError string           `json:"build_error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// Sink доставляет сообщение получателю.
type Sink interface {
	Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error
}

// Publisher публикует сообщения в exchange RabbitMQ.
type Publisher struct {
	conn     *Connection
	exchange Exchange
	logger   *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, exchange Exchange, logger *slog.Logger) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}
}

// Publish публикует сообщение с routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(p.exchange), // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", p.exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", p.exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}
