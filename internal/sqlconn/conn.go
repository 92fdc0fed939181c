package sqlconn

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default configuration values.
const (
	defaultDriver  = DriverREST
	defaultURL     = "http://localhost:6041"
	defaultUser    = "root"
	defaultTimeout = 30 * time.Second
)

// Драйверы кластера.
const (
	DriverPG   = "pg"
	DriverREST = "rest"
)

// Conn — одно соединение с кластером.
//
// Реализации не обязаны быть потокобезопасными: соединением владеет
// ровно одна горутина.
type Conn interface {
	// Exec выполняет statement, результат не нужен.
	Exec(ctx context.Context, sql string) error

	// Query выполняет statement и возвращает строки.
	Query(ctx context.Context, sql string) (*Result, error)

	// Close закрывает соединение.
	Close(ctx context.Context) error
}

// Dialer создаёт независимые соединения.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialFunc — адаптер функции к Dialer.
type DialFunc func(ctx context.Context) (Conn, error)

// Dial реализует Dialer.
func (f DialFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// Result — набор строк, возвращённый statement-ом.
type Result struct {
	Columns []string
	Rows    [][]any
}

// RowCount возвращает количество строк.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Value возвращает значение ячейки или ошибку, если индексы вне диапазона.
func (r *Result) Value(row, col int) (any, error) {
	if r == nil || row < 0 || row >= len(r.Rows) {
		return nil, fmt.Errorf("row %d out of range (%d rows)", row, r.RowCount())
	}
	if col < 0 || col >= len(r.Rows[row]) {
		return nil, fmt.Errorf("column %d out of range (%d columns)", col, len(r.Rows[row]))
	}
	return r.Rows[row][col], nil
}

// IntValue возвращает значение ячейки как int.
// JSON-числа приходят как float64, pgx — как int16/int32/int64.
func (r *Result) IntValue(row, col int) (int, error) {
	v, err := r.Value(row, col)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("cell (%d,%d) is %T, not a number", row, col, v)
	}
}

// Config — параметры подключения к кластеру.
type Config struct {
	// Driver — "rest" (по умолчанию) или "pg".
	Driver string

	// URL — для rest: http(s)://host:port; для pg: postgres:// DSN.
	URL string

	// User / Password — учётные данные (для rest — basic auth).
	User     string
	Password string

	// Database — база по умолчанию (для rest добавляется в путь /rest/sql/<db>).
	Database string

	// Timeout — таймаут одного statement.
	Timeout time.Duration
}

// withDefaults заполняет незаданные поля.
func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = defaultDriver
	}
	if c.URL == "" && c.Driver == DriverREST {
		c.URL = defaultURL
	}
	if c.User == "" && c.Driver == DriverREST {
		c.User = defaultUser
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Redacted возвращает адрес кластера без учётных данных (для логов и отчётов).
func (c Config) Redacted() string {
	u := c.URL
	if at := strings.LastIndex(u, "@"); at >= 0 {
		if scheme := strings.Index(u, "://"); scheme >= 0 && scheme < at {
			u = u[:scheme+3] + u[at+1:]
		}
	}
	return c.Driver + "+" + u
}

// NewDialer создаёт Dialer для выбранного драйвера.
func NewDialer(cfg Config) (Dialer, error) {
	cfg = cfg.withDefaults()

	switch cfg.Driver {
	case DriverPG:
		return DialFunc(func(ctx context.Context) (Conn, error) {
			return DialPG(ctx, cfg)
		}), nil
	case DriverREST:
		return DialFunc(func(ctx context.Context) (Conn, error) {
			return DialREST(ctx, cfg)
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// validateStatement отбрасывает пустые statement-ы до отправки.
func validateStatement(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return ErrEmptyStatement
	}
	return nil
}
