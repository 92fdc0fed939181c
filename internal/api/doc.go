// Package api содержит read-only HTTP API результатов.
//
// Структура:
//   - handler.go     — Handler с DI (store, матрица, live-состояние, метрики)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — Data Transfer Objects
//   - run_handler.go    — обработчики для /runs
//   - matrix_handler.go — /healthz, /matrix, /live
//
// Endpoints:
//
//	GET /healthz
//	GET /metrics
//	GET /api/v1/matrix
//	GET /api/v1/live
//	GET /api/v1/runs?status=...&limit=...&offset=...
//	GET /api/v1/runs/{id}
//	GET /api/v1/runs/{id}/outcomes
package api
