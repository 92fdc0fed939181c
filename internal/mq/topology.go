package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeResults Exchange = "conflictsuite.results"
	ExchangeDLQ     Exchange = "conflictsuite.dlq"
)

// Queues — имена очередей.
const (
	// QueueHistory — durable копия всех результатов для внешних потребителей.
	QueueHistory Queue = "results.history"
	QueueDLQ     Queue = "dlq.results"
)

// Routing keys.
const (
	RoutingKeyRunStarted      RoutingKey = "run.started"
	RoutingKeyOutcomeRecorded RoutingKey = "outcome.recorded"
	RoutingKeyRunFinished     RoutingKey = "run.finished"
	RoutingKeyAll             RoutingKey = "#"
	RoutingKeyDLQ             RoutingKey = "results"
)

// DeclareTopology объявляет exchanges, очереди и привязки. Идемпотентна.
// Подходит как ConnectionConfig.OnConnect: после рестарта брокера
// топология объявляется заново.
func DeclareTopology(ch *amqp.Channel) error {
	if err := declareExchanges(ch); err != nil {
		return err
	}
	if err := declareQueues(ch); err != nil {
		return err
	}
	return bindQueues(ch)
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeResults, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQ),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// results.history — с DLQ (битые сообщения не крутятся вечно)
		{QueueHistory, dlqArgs},

		// dlq.results — сама DLQ очередь
		{QueueDLQ, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueHistory, RoutingKeyAll, ExchangeResults},
		{QueueDLQ, RoutingKeyDLQ, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// DeclareWatchQueue объявляет временную очередь для `conflictsuite watch`.
//
// Очередь эксклюзивная и удаляется вместе с соединением, поэтому
// после reconnect её нужно объявить заново: функция подходит
// как ConsumerConfig.Declare.
func DeclareWatchQueue(ch *amqp.Channel) (string, error) {
	q, err := ch.QueueDeclare(
		"",    // имя выдаст сервер
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare watch queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, string(RoutingKeyAll), string(ExchangeResults), false, nil); err != nil {
		return "", fmt.Errorf("bind watch queue: %w", err)
	}
	return q.Name, nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  conflictsuite RabbitMQ Topology:

    conflictsuite.results (topic)
    ├── results.history [routing: #]
    │       Consumer: external dashboards
    │       DLQ: dlq.results
    └── amq.gen-* [routing: #, exclusive]
            Consumer: conflictsuite watch

    conflictsuite.dlq (direct)
    └── dlq.results [routing: results]
            Manual processing
  `
}
