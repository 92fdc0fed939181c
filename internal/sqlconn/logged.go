package sqlconn

import (
	"context"
	"log/slog"
	"time"
)

// loggedConn пишет каждый statement в лог.
type loggedConn struct {
	Conn
	logger *slog.Logger
}

// Logged оборачивает соединение: каждый statement, его длительность
// и ошибка пишутся на уровне DEBUG.
func Logged(conn Conn, logger *slog.Logger) Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggedConn{Conn: conn, logger: logger}
}

// LoggedDialer оборачивает все соединения, созданные dialer-ом.
func LoggedDialer(d Dialer, logger *slog.Logger) Dialer {
	return DialFunc(func(ctx context.Context) (Conn, error) {
		conn, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return Logged(conn, logger), nil
	})
}

func (c *loggedConn) Exec(ctx context.Context, sql string) error {
	start := time.Now()
	err := c.Conn.Exec(ctx, sql)
	c.log(ctx, sql, start, -1, err)
	return err
}

func (c *loggedConn) Query(ctx context.Context, sql string) (*Result, error) {
	start := time.Now()
	res, err := c.Conn.Query(ctx, sql)
	c.log(ctx, sql, start, res.RowCount(), err)
	return res, err
}

func (c *loggedConn) log(ctx context.Context, sql string, start time.Time, rows int, err error) {
	attrs := []any{
		"sql", sql,
		"duration", time.Since(start),
	}
	if rows >= 0 {
		attrs = append(attrs, "rows", rows)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	c.logger.DebugContext(ctx, "statement", attrs...)
}
