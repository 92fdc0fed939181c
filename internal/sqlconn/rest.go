package sqlconn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// restResponse — ответ REST SQL endpoint.
type restResponse struct {
	Code       int     `json:"code"`
	Desc       string  `json:"desc"`
	ColumnMeta [][]any `json:"column_meta"`
	Data       [][]any `json:"data"`
	Rows       int     `json:"rows"`
}

// RestConn — соединение через REST SQL endpoint кластера.
//
// REST не держит сессию, поэтому "соединение" — это собственный
// http.Client со своим пулом TCP-соединений: участники сценария
// не делят транспорт.
type RestConn struct {
	endpoint   string
	user       string
	password   string
	httpClient *http.Client
	closed     atomic.Bool
}

// DialREST создаёт REST-соединение и проверяет доступность endpoint-а.
func DialREST(ctx context.Context, cfg Config) (*RestConn, error) {
	cfg = cfg.withDefaults()

	endpoint := strings.TrimRight(cfg.URL, "/") + "/rest/sql"
	if cfg.Database != "" {
		endpoint += "/" + cfg.Database
	}

	c := &RestConn{
		endpoint: endpoint,
		user:     cfg.User,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{MaxIdleConnsPerHost: 1},
		},
	}

	if _, err := c.Query(ctx, "SELECT SERVER_VERSION()"); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("ping %s: %w", cfg.URL, err)
	}

	return c, nil
}

// Exec выполняет statement.
func (c *RestConn) Exec(ctx context.Context, sql string) error {
	_, err := c.do(ctx, sql)
	return err
}

// Query выполняет statement и возвращает строки.
func (c *RestConn) Query(ctx context.Context, sql string) (*Result, error) {
	resp, err := c.do(ctx, sql)
	if err != nil {
		return nil, err
	}

	result := &Result{Rows: resp.Data}
	for _, meta := range resp.ColumnMeta {
		if len(meta) == 0 {
			continue
		}
		name, _ := meta[0].(string)
		result.Columns = append(result.Columns, name)
	}
	return result, nil
}

// Close закрывает соединение.
func (c *RestConn) Close(_ context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

// do отправляет statement и разбирает ответ.
func (c *RestConn) do(ctx context.Context, sql string) (*restResponse, error) {
	if err := validateStatement(sql); err != nil {
		return nil, err
	}
	if c.closed.Load() {
		return nil, ErrClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(sql))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", sql, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out restResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("exec %q: HTTP %d: %s", sql, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if out.Code != 0 {
		return nil, &CommandError{
			SQL:     sql,
			Code:    fmt.Sprintf("0x%04x", out.Code),
			Message: out.Desc,
		}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("exec %q: HTTP %d", sql, resp.StatusCode)
	}

	return &out, nil
}
