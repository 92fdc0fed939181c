// Package sqlconn — канал команд к кластеру.
//
// Conn выполняет один SQL/административный statement и возвращает либо
// набор строк, либо *CommandError с сообщением сервера. Каждый участник
// сценария (coordinator, каждый worker) получает собственное соединение
// через Dialer — соединения не разделяются между горутинами.
//
// Транспорты:
//   - pg.go   — PostgreSQL wire через pgx/v5 (одно соединение, не пул)
//   - rest.go — REST SQL endpoint кластера (POST /rest/sql)
//
// Logged оборачивает Conn и пишет каждый statement в slog на уровне DEBUG.
package sqlconn
