package clustertest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/sqlconn"
)

// Driver — имя драйвера симулятора в конфигурации CLI.
const Driver = "sim"

// Default configuration values.
const (
	defaultJobDuration = 50 * time.Millisecond
	defaultDatabase    = "db"
	defaultVGroups     = 4
	firstVGroupID      = 2
	serverVersion      = "3.3.0.0-sim"
)

// Коды ошибок симулятора (формат hex, как у REST endpoint-а).
const (
	CodeConflictWithCompact = "0x03d3"
	CodeConflictTransaction = "0x03d1"
	CodeSyntax              = "0x2600"
	CodeNotExist            = "0x0388"
	CodeExists              = "0x0389"
)

// job — активная административная операция на "сервере".
type job struct {
	id       int
	kind     domain.OperationKind
	database string
	started  time.Time
	deadline time.Time // нулевой — только FinishAll
}

// Cluster — симулированный кластер.
type Cluster struct {
	mu        sync.Mutex
	nextJobID int
	jobs      []*job
	databases map[string][]int // имя → vgroup-ы
	nextVG    int

	jobDuration     time.Duration
	ignoreConflicts bool
	failures        map[string]string // префикс statement → сообщение
	statements      []string
	openConns       atomic.Int32
}

// Option настраивает Cluster.
type Option func(*Cluster)

// WithJobDuration задаёт время жизни job-а. d <= 0 — job живёт до FinishAll.
func WithJobDuration(d time.Duration) Option {
	return func(c *Cluster) {
		c.jobDuration = d
	}
}

// WithoutConflictChecks моделирует сломанный кластер, принимающий всё.
func WithoutConflictChecks() Option {
	return func(c *Cluster) {
		c.ignoreConflicts = true
	}
}

// WithoutDatabase создаёт пустой кластер (база создаётся через CREATE DATABASE).
func WithoutDatabase() Option {
	return func(c *Cluster) {
		delete(c.databases, defaultDatabase)
		c.nextVG = firstVGroupID
	}
}

// New создаёт кластер с базой "db" из 4 vgroup-ов (id 2..5).
func New(opts ...Option) *Cluster {
	c := &Cluster{
		nextJobID:   1,
		databases:   make(map[string][]int),
		nextVG:      firstVGroupID,
		jobDuration: defaultJobDuration,
		failures:    make(map[string]string),
	}
	c.databases[defaultDatabase] = c.allocVGroups(defaultVGroups)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial реализует sqlconn.Dialer.
func (c *Cluster) Dial(ctx context.Context) (sqlconn.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.openConns.Add(1)
	return &conn{cluster: c}, nil
}

// FailStatement заставляет statement-ы с префиксом prefix падать с message.
func (c *Cluster) FailStatement(prefix, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[strings.ToUpper(prefix)] = message
}

// FinishAll завершает все активные job-ы.
func (c *Cluster) FinishAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = nil
}

// Active возвращает количество активных job-ов заданного типа.
func (c *Cluster) Active(kind domain.OperationKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(time.Now())

	n := 0
	for _, j := range c.jobs {
		if j.kind == kind {
			n++
		}
	}
	return n
}

// Statements возвращает все выполненные statement-ы по порядку.
func (c *Cluster) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.statements))
	copy(out, c.statements)
	return out
}

// OpenConns возвращает количество незакрытых соединений.
func (c *Cluster) OpenConns() int {
	return int(c.openConns.Load())
}

// VGroups возвращает vgroup-ы базы.
func (c *Cluster) VGroups(database string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.databases[database]...)
}

func (c *Cluster) allocVGroups(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = c.nextVG
		c.nextVG++
	}
	return ids
}

// expireLocked удаляет job-ы с истёкшим сроком.
func (c *Cluster) expireLocked(now time.Time) {
	alive := c.jobs[:0]
	for _, j := range c.jobs {
		if j.deadline.IsZero() || now.Before(j.deadline) {
			alive = append(alive, j)
		}
	}
	c.jobs = alive
}

// execute — точка входа всех statement-ов.
func (c *Cluster) execute(sql string) (*sqlconn.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.expireLocked(now)
	c.statements = append(c.statements, sql)

	fields := strings.Fields(strings.TrimRight(strings.TrimSpace(sql), ";"))
	upper := make([]string, len(fields))
	for i, f := range fields {
		upper[i] = strings.ToUpper(f)
	}
	norm := strings.Join(upper, " ")

	for prefix, msg := range c.failures {
		if strings.HasPrefix(norm, prefix) {
			return nil, &sqlconn.CommandError{SQL: sql, Code: CodeSyntax, Message: msg}
		}
	}

	switch {
	case norm == "SELECT SERVER_VERSION()":
		return &sqlconn.Result{Columns: []string{"server_version()"}, Rows: [][]any{{serverVersion}}}, nil

	case norm == domain.QueryShowTransactions:
		return c.showTransactionsLocked(), nil

	case norm == domain.QueryShowCompacts:
		return c.showCompactsLocked(), nil

	case norm == domain.QueryShowVGroups:
		return c.showVGroupsLocked(), nil

	case len(upper) == 2 && upper[0] == "USE":
		if _, ok := c.databases[fields[1]]; !ok {
			return nil, notExist(sql, "Database not exist")
		}
		return &sqlconn.Result{}, nil

	case len(upper) >= 3 && upper[0] == "CREATE" && upper[1] == "DATABASE":
		return c.createDatabaseLocked(sql, fields, upper)

	case len(upper) == 3 && upper[0] == "COMPACT" && upper[1] == "DATABASE":
		if _, ok := c.databases[fields[2]]; !ok {
			return nil, notExist(sql, "Database not exist")
		}
		return c.startJobLocked(sql, domain.KindCompact, fields[2], now)

	case len(upper) == 5 && upper[0] == "ALTER" && upper[1] == "DATABASE" && upper[3] == "REPLICA":
		if _, ok := c.databases[fields[2]]; !ok {
			return nil, notExist(sql, "Database not exist")
		}
		if n, err := strconv.Atoi(upper[4]); err != nil || (n != 1 && n != 3) {
			return nil, syntaxError(sql, upper[4])
		}
		return c.startJobLocked(sql, domain.KindAlterReplica, fields[2], now)

	case norm == "BALANCE VGROUP":
		return c.startJobLocked(sql, domain.KindBalance, "", now)

	case len(upper) == 5 && upper[0] == "REDISTRIBUTE" && upper[1] == "VGROUP" && upper[3] == "DNODE":
		db, err := c.vgroupDatabaseLocked(sql, upper[2])
		if err != nil {
			return nil, err
		}
		return c.startJobLocked(sql, domain.KindRedistribute, db, now)

	case len(upper) == 3 && upper[0] == "SPLIT" && upper[1] == "VGROUP":
		db, err := c.vgroupDatabaseLocked(sql, upper[2])
		if err != nil {
			return nil, err
		}
		return c.startJobLocked(sql, domain.KindSplit, db, now)
	}

	near := sql
	if len(fields) > 0 {
		near = fields[0]
	}
	return nil, syntaxError(sql, near)
}

// startJobLocked проверяет конфликты и регистрирует job.
//
// Правила:
//   - структурная операция при активном compact → "conflict with compact"
//   - любая операция при активной структурной транзакции → "Conflict transaction not completed"
//   - compact при активном compact → "Conflict transaction not completed"
func (c *Cluster) startJobLocked(sql string, kind domain.OperationKind, database string, now time.Time) (*sqlconn.Result, error) {
	if !c.ignoreConflicts && len(c.jobs) > 0 {
		if kind != domain.KindCompact && c.hasJobLocked(domain.KindCompact) {
			return nil, &sqlconn.CommandError{SQL: sql, Code: CodeConflictWithCompact, Message: domain.MsgConflictWithCompact}
		}
		return nil, &sqlconn.CommandError{SQL: sql, Code: CodeConflictTransaction, Message: domain.MsgConflictTransaction}
	}

	j := &job{id: c.nextJobID, kind: kind, database: database, started: now}
	if c.jobDuration > 0 {
		j.deadline = now.Add(c.jobDuration)
	}
	c.nextJobID++
	c.jobs = append(c.jobs, j)
	return &sqlconn.Result{}, nil
}

func (c *Cluster) hasJobLocked(kind domain.OperationKind) bool {
	for _, j := range c.jobs {
		if j.kind == kind {
			return true
		}
	}
	return false
}

func (c *Cluster) createDatabaseLocked(sql string, fields, upper []string) (*sqlconn.Result, error) {
	i := 2
	ifNotExists := false
	if len(upper) >= 6 && upper[2] == "IF" && upper[3] == "NOT" && upper[4] == "EXISTS" {
		ifNotExists = true
		i = 5
	}
	if i >= len(fields) {
		return nil, syntaxError(sql, sql)
	}
	name := fields[i]

	vgroups := 2
	for k := i + 1; k+1 < len(upper); k += 2 {
		n, err := strconv.Atoi(upper[k+1])
		if err != nil {
			return nil, syntaxError(sql, upper[k+1])
		}
		switch upper[k] {
		case "VGROUPS":
			vgroups = n
		case "REPLICA":
		default:
			return nil, syntaxError(sql, fields[k])
		}
	}

	if _, ok := c.databases[name]; ok {
		if ifNotExists {
			return &sqlconn.Result{}, nil
		}
		return nil, &sqlconn.CommandError{SQL: sql, Code: CodeExists, Message: "Database already exists"}
	}
	c.databases[name] = c.allocVGroups(vgroups)
	return &sqlconn.Result{}, nil
}

func (c *Cluster) vgroupDatabaseLocked(sql, raw string) (string, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return "", syntaxError(sql, raw)
	}
	for db, ids := range c.databases {
		for _, vg := range ids {
			if vg == id {
				return db, nil
			}
		}
	}
	return "", notExist(sql, "Vgroup does not exist")
}

func (c *Cluster) showTransactionsLocked() *sqlconn.Result {
	res := &sqlconn.Result{Columns: []string{"transaction_id", "create_time", "stage", "oper", "db"}}
	for _, j := range c.jobs {
		if j.kind == domain.KindCompact {
			continue
		}
		res.Rows = append(res.Rows, []any{j.id, j.started.Format(time.RFC3339Nano), "redoAction", string(j.kind), j.database})
	}
	return res
}

func (c *Cluster) showCompactsLocked() *sqlconn.Result {
	res := &sqlconn.Result{Columns: []string{"compact_id", "db_name", "start_time"}}
	for _, j := range c.jobs {
		if j.kind != domain.KindCompact {
			continue
		}
		res.Rows = append(res.Rows, []any{j.id, j.database, j.started.Format(time.RFC3339Nano)})
	}
	return res
}

func (c *Cluster) showVGroupsLocked() *sqlconn.Result {
	type row struct {
		id int
		db string
	}
	var rows []row
	for db, ids := range c.databases {
		for _, id := range ids {
			rows = append(rows, row{id: id, db: db})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	res := &sqlconn.Result{Columns: []string{"vgroup_id", "db_name", "tables", "v1_dnode", "v1_status"}}
	for _, r := range rows {
		res.Rows = append(res.Rows, []any{r.id, r.db, 0, 1, "leader"})
	}
	return res
}

func syntaxError(sql, near string) error {
	return &sqlconn.CommandError{SQL: sql, Code: CodeSyntax, Message: fmt.Sprintf("syntax error near %q", near)}
}

func notExist(sql, msg string) error {
	return &sqlconn.CommandError{SQL: sql, Code: CodeNotExist, Message: msg}
}

// conn — соединение с симулятором. Как и настоящее, принадлежит одной горутине.
type conn struct {
	cluster *Cluster
	closed  atomic.Bool
}

func (c *conn) Exec(ctx context.Context, sql string) error {
	_, err := c.Query(ctx, sql)
	return err
}

func (c *conn) Query(ctx context.Context, sql string) (*sqlconn.Result, error) {
	if c.closed.Load() {
		return nil, sqlconn.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sql) == "" {
		return nil, sqlconn.ErrEmptyStatement
	}
	return c.cluster.execute(sql)
}

func (c *conn) Close(context.Context) error {
	if c.closed.CompareAndSwap(false, true) {
		c.cluster.openConns.Add(-1)
	}
	return nil
}
