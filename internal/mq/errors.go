package mq

import "errors"

var (
	// ErrNoChannel — AMQP канал недоступен (соединение потеряно, идёт reconnect).
	ErrNoChannel = errors.New("no channel available")

	// ErrClosed — соединение закрыто через Close.
	ErrClosed = errors.New("connection closed")

	// ErrDeliveriesClosed — сервер закрыл канал доставки.
	ErrDeliveriesClosed = errors.New("deliveries channel closed")
)
