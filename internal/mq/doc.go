// Package mq публикует результаты прогонов в RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация результатов (реализует orchestrator.Recorder)
//   - consumer.go   — потребление результатов (history-очередь, `conflictsuite watch`)
//
// Типы сообщений:
//   - run.started      — прогон матрицы начался
//   - outcome.recorded — правило проверено
//   - run.finished     — прогон завершён (PASSED / FAILED / CANCELLED)
//
// Exchanges:
//   - conflictsuite.results — события результатов (topic)
//   - conflictsuite.dlq     — dead letter queue
package mq
