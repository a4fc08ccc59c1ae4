package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// DefaultExchange — topic exchange для событий run.
const DefaultExchange Exchange = "smartchainflow.events"

// Routing keys. Совпадают с типом сообщения, поэтому подписчик может
// выбирать события шаблоном: "step.*", "run.#".
const (
	RoutingKeyRunStarted   RoutingKey = "run.started"
	RoutingKeyRunFinished  RoutingKey = "run.finished"
	RoutingKeyStepStarted  RoutingKey = "step.started"
	RoutingKeyStepFinished RoutingKey = "step.finished"
)

// SetupTopology объявляет exchange для событий.
//
// Если queue не пустая, объявляет durable очередь и привязывает её ко всем
// событиям ("#"). Без очереди события, на которые никто не подписан,
// RabbitMQ отбрасывает.
func SetupTopology(ctx context.Context, conn *Connection, exchange Exchange, queue string) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(exchange), // name
			"topic",          // type
			true,             // durable
			false,            // auto-deleted
			false,            // internal
			false,            // no-wait
			nil,              // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", exchange, err)
		}

		if queue == "" {
			return nil
		}

		if _, err := ch.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		if err := ch.QueueBind(queue, "#", string(exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(exchange Exchange, queue string) string {
	info := fmt.Sprintf("%s (topic)\n  routing: %s, %s, %s, %s\n",
		exchange, RoutingKeyRunStarted, RoutingKeyStepStarted, RoutingKeyStepFinished, RoutingKeyRunFinished)
	if queue != "" {
		info += fmt.Sprintf("  └── %s [routing: #]\n", queue)
	}
	return info
}
