// Package telemetry обеспечивает наблюдаемость харнесса.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики прогонов, polling и проверок
//
// Все команды используют единый формат логирования
// и могут экспортировать метрики на /metrics endpoint.
package telemetry
