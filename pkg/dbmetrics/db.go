// Package dbmetrics оборачивает *sql.DB и собирает метрики запросов и пула соединений.
package dbmetrics

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// DefaultStatsInterval период сбора статистики пула соединений
const DefaultStatsInterval = 15 * time.Second

// Recorder приёмник метрик (реализуется pkg/metrics.Metrics)
type Recorder interface {
	ObserveDBQuery(operation string, duration time.Duration, err error)
	SetDBStats(stats sql.DBStats)
}

// DB обёртка над *sql.DB с метриками
type DB struct {
	db       *sql.DB
	recorder Recorder
}

// Wrap оборачивает соединение; recorder может быть nil
func Wrap(db *sql.DB, recorder Recorder) *DB {
	return &DB{db: db, recorder: recorder}
}

// WrapWithDefault оборачивает соединение и запускает фоновый сбор статистики пула,
// который останавливается закрытием канала stop
func WrapWithDefault(db *sql.DB, recorder Recorder, stop <-chan struct{}) *DB {
	wrapped := Wrap(db, recorder)
	if recorder != nil {
		go wrapped.collectStats(DefaultStatsInterval, stop)
	}
	return wrapped
}

func (d *DB) collectStats(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.recorder.SetDBStats(d.db.Stats())
	for {
		select {
		case <-ticker.C:
			d.recorder.SetDBStats(d.db.Stats())
		case <-stop:
			return
		}
	}
}

func (d *DB) observe(query string, started time.Time, err error) {
	if d.recorder == nil {
		return
	}
	d.recorder.ObserveDBQuery(operationFromQuery(query), time.Since(started), err)
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	started := time.Now()
	res, err := d.db.ExecContext(ctx, query, args...)
	d.observe(query, started, err)
	return res, err
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	started := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.observe(query, started, err)
	return rows, err
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	started := time.Now()
	row := d.db.QueryRowContext(ctx, query, args...)
	d.observe(query, started, row.Err())
	return row
}

// BeginTx начинает транзакцию, запросы которой тоже попадают в метрики
func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (TxExecutor, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, parent: d}, nil
}

// PingContext проверяет соединение с БД
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Tx транзакция с метриками
type Tx struct {
	tx     *sql.Tx
	parent *DB
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	started := time.Now()
	res, err := t.tx.ExecContext(ctx, query, args...)
	t.parent.observe(query, started, err)
	return res, err
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	started := time.Now()
	rows, err := t.tx.QueryContext(ctx, query, args...)
	t.parent.observe(query, started, err)
	return rows, err
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	started := time.Now()
	row := t.tx.QueryRowContext(ctx, query, args...)
	t.parent.observe(query, started, row.Err())
	return row
}

func (t *Tx) Commit() error {
	started := time.Now()
	err := t.tx.Commit()
	t.parent.observe("commit", started, err)
	return err
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// operationFromQuery возвращает первое ключевое слово запроса в нижнем регистре
func operationFromQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
