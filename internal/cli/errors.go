package cli

import "errors"

var (
	// ErrSuiteFailed — прогон завершён, но хотя бы одно правило не прошло.
	ErrSuiteFailed = errors.New("conflict suite failed")

	// ErrWaitTimedOut — транзакции не завершились за отведённое время.
	ErrWaitTimedOut = errors.New("transactions still active")

	// ErrNoStore — команде нужна база результатов, а DB_URL не задан.
	ErrNoStore = errors.New("DB_URL is not set")

	// ErrNoBroker — команде нужен RabbitMQ, а RABBITMQ_URL не задан.
	ErrNoBroker = errors.New("RABBITMQ_URL is not set")
)
