package datarecording

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// clickHouseRecorder writes event tables to a ClickHouse server. It only
// stores EventRow entries and appends them without reflection.
type clickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables  map[string]bool
	batches map[string][]EventRow
	pending int
}

// newClickHouseRecorder connects to the server named by a DSN such as
// clickhouse://localhost:9000/nsim?username=default.
func newClickHouseRecorder(dsn string, batchSize int) (*clickHouseRecorder, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing ClickHouse DSN: %w", err)
	}

	opts.DialTimeout = 30 * time.Second
	opts.MaxOpenConns = 5
	opts.MaxIdleConns = 5
	opts.ConnMaxLifetime = time.Hour
	opts.ConnOpenStrategy = clickhouse.ConnOpenInOrder

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("pinging ClickHouse: %w", err)
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: batchSize,
		tables:    make(map[string]bool),
		batches:   make(map[string][]EventRow),
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	if _, ok := sampleEntry.(EventRow); !ok {
		panic(fmt.Sprintf("ClickHouse recorder cannot store %T", sampleEntry))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.conn.Exec(context.Background(), fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			node_id UInt64,
			model String,
			step UInt64,
			time_ms Float64,
			sender UInt64,
			field String,
			value Float64
		) ENGINE = MergeTree()
		ORDER BY (node_id, step)
	`, tableName))
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = true
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	row, ok := entry.(EventRow)
	if !ok {
		panic(fmt.Sprintf("invalid entry type %T for table %s", entry, tableName))
	}

	r.mu.Lock()

	if !r.tables[tableName] {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	r.batches[tableName] = append(r.batches[tableName], row)
	r.pending++

	full := r.pending >= r.batchSize
	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, 0, len(r.tables))
	for name := range r.tables {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

func (r *clickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == 0 {
		return
	}

	ctx := context.Background()
	for tableName, rows := range r.batches {
		if len(rows) > 0 {
			r.flushTable(ctx, tableName, rows)
			r.batches[tableName] = rows[:0]
		}
	}

	r.pending = 0
}

func (r *clickHouseRecorder) flushTable(
	ctx context.Context,
	tableName string,
	rows []EventRow,
) {
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
	}

	for _, row := range rows {
		err = batch.Append(
			row.NodeID,
			row.Model,
			row.Step,
			row.TimeMs,
			row.Sender,
			row.Field,
			row.Value,
		)
		if err != nil {
			panic(fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	if err := batch.Send(); err != nil {
		panic(fmt.Errorf("failed to send batch: %w", err))
	}
}

func (r *clickHouseRecorder) Close() error {
	r.Flush()

	return r.conn.Close()
}
