package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
)

// fakeConn отдаёт заранее заданную последовательность количеств строк.
// После окончания последовательности повторяет последнее значение.
type fakeConn struct {
	mu      sync.Mutex
	counts  []int
	err     error
	queries []string
}

func (c *fakeConn) Exec(context.Context, string) error { return nil }

func (c *fakeConn) Query(_ context.Context, sql string) (*sqlconn.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries = append(c.queries, sql)
	if c.err != nil {
		return nil, c.err
	}

	n := 0
	if len(c.counts) > 0 {
		n = c.counts[0]
		if len(c.counts) > 1 {
			c.counts = c.counts[1:]
		}
	}
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{i + 1}
	}
	return &sqlconn.Result{Columns: []string{"id"}, Rows: rows}, nil
}

func (c *fakeConn) Close(context.Context) error { return nil }

func (c *fakeConn) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

func fastOptions(timeout time.Duration) Options {
	return Options{Timeout: timeout, Interval: 5 * time.Millisecond}
}

func TestWaitUntilZero_AlreadyIdle(t *testing.T) {
	conn := &fakeConn{counts: []int{0}}
	p := New(Config{Conn: conn})

	res, err := p.WaitUntilZero(context.Background(), domain.QueryShowTransactions, fastOptions(time.Second))
	require.NoError(t, err)

	// Без активных транзакций ожидание сводится к одному запросу
	assert.Equal(t, domain.PollStatusCompleted, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 0, res.LastCount)
}

func TestWaitUntilZero_DrainsToZero(t *testing.T) {
	conn := &fakeConn{counts: []int{2, 1, 1, 0}}
	p := New(Config{Conn: conn})

	res, err := p.WaitUntilZero(context.Background(), domain.QueryShowCompacts, fastOptions(time.Second))
	require.NoError(t, err)

	assert.True(t, res.Completed())
	assert.Equal(t, 4, res.Attempts)
	for _, q := range conn.queries {
		assert.Equal(t, domain.QueryShowCompacts, q)
	}
}

func TestWaitUntilZero_ZeroTimeoutRunsOnce(t *testing.T) {
	conn := &fakeConn{counts: []int{1}}
	p := New(Config{Conn: conn})

	res, err := p.WaitUntilZero(context.Background(), domain.QueryShowTransactions, fastOptions(0))
	require.NoError(t, err)

	assert.Equal(t, domain.PollStatusTimedOut, res.Status)
	assert.Equal(t, 1, conn.calls())
}

func TestWaitUntilZero_ZeroTimeoutIdle(t *testing.T) {
	conn := &fakeConn{counts: []int{0}}
	p := New(Config{Conn: conn})

	res, err := p.WaitUntilZero(context.Background(), domain.QueryShowTransactions, fastOptions(0))
	require.NoError(t, err)

	assert.Equal(t, domain.PollStatusCompleted, res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, conn.calls())
}

func TestWaitUntilZero_NegativeTimeout(t *testing.T) {
	conn := &fakeConn{}
	p := New(Config{Conn: conn})

	_, err := p.WaitUntilZero(context.Background(), domain.QueryShowTransactions, Options{Timeout: -time.Second})
	require.ErrorIs(t, err, ErrNegativeTimeout)
	assert.Zero(t, conn.calls())
}

func TestWaitUntilZero_EmptyQuery(t *testing.T) {
	p := New(Config{Conn: &fakeConn{}})

	_, err := p.WaitUntilZero(context.Background(), "", DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestWaitUntilZero_TimedOut(t *testing.T) {
	conn := &fakeConn{counts: []int{1}}
	p := New(Config{Conn: conn})

	start := time.Now()
	res, err := p.WaitUntilZero(context.Background(), domain.QueryShowTransactions, fastOptions(30*time.Millisecond))
	require.NoError(t, err, "timeout is a soft outcome")

	assert.Equal(t, domain.PollStatusTimedOut, res.Status)
	assert.Equal(t, 1, res.LastCount)
	assert.Greater(t, res.Attempts, 1)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWaitUntilZero_Cancelled(t *testing.T) {
	conn := &fakeConn{counts: []int{1}}
	p := New(Config{Conn: conn})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := p.WaitUntilZero(ctx, domain.QueryShowTransactions, fastOptions(time.Minute))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.PollStatusCancelled, res.Status)
}

func TestWaitUntilZero_QueryFailed(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection reset")}
	p := New(Config{Conn: conn})

	_, err := p.WaitUntilZero(context.Background(), domain.QueryShowTransactions, fastOptions(time.Second))
	require.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, conn.calls())
}

func TestWaitAllZero(t *testing.T) {
	conn := &fakeConn{counts: []int{1, 0, 0}}
	p := New(Config{Conn: conn})

	res, err := p.WaitAllZero(context.Background(),
		[]string{domain.QueryShowTransactions, domain.QueryShowCompacts},
		fastOptions(time.Second))
	require.NoError(t, err)

	assert.True(t, res.Completed())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []string{
		domain.QueryShowTransactions,
		domain.QueryShowTransactions,
		domain.QueryShowCompacts,
	}, conn.queries)
}

func TestCount(t *testing.T) {
	p := New(Config{Conn: &fakeConn{counts: []int{3}}})

	n, err := p.Count(context.Background(), domain.QueryShowVGroups)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
