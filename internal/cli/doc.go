// Package cli реализует командную строку conflictsuite.
//
// # Обзор
//
// Команды делятся на две группы:
//   - работающие с кластером напрямую: run, soak, wait, matrix
//   - работающие с результатами: serve (read API над Postgres),
//     runs (HTTP-клиент read API), watch (поток из RabbitMQ)
//
// # Конфигурация
//
// Config читается из окружения после загрузки .env (godotenv).
// CLUSTER_DRIVER=sim поднимает симулятор кластера в памяти процесса:
//
//	CLUSTER_DRIVER=sim conflictsuite run --json | jq .
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию или JSON с флагом --json.
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
//
// # Commands
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей appFn/clientFn и outputFn — замыкания для ленивого
// создания зависимостей после разбора PersistentFlags.
package cli
