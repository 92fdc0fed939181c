package sqlconn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgConn — соединение по PostgreSQL wire protocol.
//
// Используется одно *pgx.Conn, а не пул: пул мог бы незаметно
// сериализовать или перемешать statement-ы разных участников сценария.
type PgConn struct {
	conn    *pgx.Conn
	timeout time.Duration
}

// DialPG открывает одно соединение pgx.
//
// Административные statement-ы отправляются через simple protocol:
// prepare для них не нужен и поддерживается не всеми серверами.
func DialPG(ctx context.Context, cfg Config) (*PgConn, error) {
	cfg = cfg.withDefaults()

	pgCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pgCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	if cfg.User != "" {
		pgCfg.User = cfg.User
	}
	if cfg.Password != "" {
		pgCfg.Password = cfg.Password
	}
	if cfg.Database != "" {
		pgCfg.Database = cfg.Database
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	conn, err := pgx.ConnectConfig(connectCtx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	return &PgConn{conn: conn, timeout: cfg.Timeout}, nil
}

// Exec выполняет statement.
func (c *PgConn) Exec(ctx context.Context, sql string) error {
	if err := validateStatement(sql); err != nil {
		return err
	}
	if c.conn.IsClosed() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.conn.Exec(ctx, sql); err != nil {
		return mapPgError(sql, err)
	}
	return nil
}

// Query выполняет statement и читает все строки.
func (c *PgConn) Query(ctx context.Context, sql string) (*Result, error) {
	if err := validateStatement(sql); err != nil {
		return nil, err
	}
	if c.conn.IsClosed() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.conn.Query(ctx, sql)
	if err != nil {
		return nil, mapPgError(sql, err)
	}
	defer rows.Close()

	result := &Result{}
	for _, fd := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(sql, err)
	}

	return result, nil
}

// Close закрывает соединение.
func (c *PgConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// mapPgError превращает ошибку сервера в *CommandError, остальные оборачивает.
func mapPgError(sql string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &CommandError{SQL: sql, Code: pgErr.Code, Message: pgErr.Message}
	}
	return fmt.Errorf("exec %q: %w", sql, err)
}
