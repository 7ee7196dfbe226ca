package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/dbkit/dialect"
)

// DefaultSlowThreshold is the duration above which a statement is slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// QueryStats counts the statements run through a StatsRecorder. The
// counters are safe for concurrent use.
type QueryStats struct {
	Queries  atomic.Int64
	Execs    atomic.Int64
	Slow     atomic.Int64
	Errors   atomic.Int64
	Duration atomic.Int64 // nanoseconds
}

// Snapshot returns the current counter values.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:  s.Queries.Load(),
		Execs:    s.Execs.Load(),
		Slow:     s.Slow.Load(),
		Errors:   s.Errors.Load(),
		Duration: time.Duration(s.Duration.Load()),
	}
}

// Reset zeroes all counters.
func (s *QueryStats) Reset() {
	for _, c := range []*atomic.Int64{&s.Queries, &s.Execs, &s.Slow, &s.Errors, &s.Duration} {
		c.Store(0)
	}
}

// StatsSnapshot is a copy of QueryStats taken at one point in time.
type StatsSnapshot struct {
	Queries  int64
	Execs    int64
	Slow     int64
	Errors   int64
	Duration time.Duration
}

// Avg returns the mean statement duration.
func (s StatsSnapshot) Avg() time.Duration {
	if n := s.Queries + s.Execs; n > 0 {
		return s.Duration / time.Duration(n)
	}
	return 0
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d slow=%d errors=%d total=%s avg=%s",
		s.Queries, s.Execs, s.Slow, s.Errors, s.Duration, s.Avg())
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, d time.Duration)

// StatsOption configures a StatsRecorder.
type StatsOption func(*StatsRecorder)

// WithSlowThreshold sets the slow statement threshold. Defaults to
// DefaultSlowThreshold.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(r *StatsRecorder) {
		r.threshold.Store(int64(d))
	}
}

// WithSlowQueryHook sets the hook called for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(r *StatsRecorder) {
		r.hook = hook
	}
}

// WithSlowQueryLog logs slow statements at warn level. A nil logger
// uses slog.Default().
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, d time.Duration) {
		l.WarnContext(ctx, "slow query", "duration", d, "query", query, "args", len(args))
	})
}

// StatsRecorder records statement counts and durations. One recorder may
// be shared by several drivers and queriers.
type StatsRecorder struct {
	stats     QueryStats
	threshold atomic.Int64
	hook      SlowQueryHook
}

// NewStatsRecorder returns a recorder configured with opts.
func NewStatsRecorder(opts ...StatsOption) *StatsRecorder {
	r := &StatsRecorder{}
	r.threshold.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QueryStats returns the live counters of the recorder.
func (r *StatsRecorder) QueryStats() *QueryStats { return &r.stats }

// SlowThreshold returns the slow statement threshold.
func (r *StatsRecorder) SlowThreshold() time.Duration {
	return time.Duration(r.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold.
func (r *StatsRecorder) SetSlowThreshold(d time.Duration) {
	r.threshold.Store(int64(d))
}

// Wrap returns eq recording its statements on r.
func (r *StatsRecorder) Wrap(eq ExecQuerier) *StatsQuerier {
	return &StatsQuerier{ExecQuerier: eq, StatsRecorder: r}
}

// observe records one statement that started at start.
func (r *StatsRecorder) observe(ctx context.Context, query string, args []any, start time.Time, rows bool, err error) {
	d := time.Since(start)
	if rows {
		r.stats.Queries.Add(1)
	} else {
		r.stats.Execs.Add(1)
	}
	r.stats.Duration.Add(int64(d))
	if err != nil {
		r.stats.Errors.Add(1)
	}
	if d <= r.SlowThreshold() {
		return
	}
	r.stats.Slow.Add(1)
	if r.hook != nil {
		r.hook(ctx, query, args, d)
	}
}

// StatsDriver is a Driver recording its statements, including those run
// in transactions, on a StatsRecorder.
type StatsDriver struct {
	*Driver
	*StatsRecorder
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ ExecQuerier    = (*StatsQuerier)(nil)
)

// NewStatsDriver wraps drv with a new recorder:
//
//	drv := sql.NewStatsDriver(base, sql.WithSlowQueryLog(logger))
//	defer func() { logger.Info("db stats", "stats", drv.QueryStats().Snapshot()) }()
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	return &StatsDriver{Driver: drv, StatsRecorder: NewStatsRecorder(opts...)}
}

// OpenWithStats is like Open but returns a StatsDriver.
func OpenWithStats(name, source string, opts ...StatsOption) (*StatsDriver, error) {
	drv, err := Open(name, source)
	if err != nil {
		return nil, err
	}
	return NewStatsDriver(drv, opts...), nil
}

func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, d.Driver.Query, true, query, args, v)
}

func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.run(ctx, d.Driver.Exec, false, query, args, v)
}

// Tx begins a transaction whose statements are recorded too.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, r: d.StatsRecorder}, nil
}

type runFunc func(ctx context.Context, query string, args, v any) error

func (r *StatsRecorder) run(ctx context.Context, fn runFunc, rows bool, query string, args, v any) error {
	start := time.Now()
	err := fn(ctx, query, args, v)
	argv, _ := args.([]any)
	r.observe(ctx, query, argv, start, rows, err)
	return err
}

type statsTx struct {
	dialect.Tx
	r *StatsRecorder
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.r.run(ctx, tx.Tx.Query, true, query, args, v)
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.r.run(ctx, tx.Tx.Exec, false, query, args, v)
}

// StatsQuerier records the statements of a database/sql handle. Catalog
// inspection uses it where no Driver exists.
type StatsQuerier struct {
	ExecQuerier
	*StatsRecorder
}

func (q *StatsQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.ExecQuerier.QueryContext(ctx, query, args...)
	q.observe(ctx, query, args, start, true, err)
	return rows, err
}

func (q *StatsQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := q.ExecQuerier.ExecContext(ctx, query, args...)
	q.observe(ctx, query, args, start, false, err)
	return res, err
}

// QueryRowContext is available when the wrapped handle has it, as
// *sql.DB, *sql.Conn and *sql.Tx do. It panics otherwise.
func (q *StatsQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	rq, ok := q.ExecQuerier.(interface {
		QueryRowContext(context.Context, string, ...any) *sql.Row
	})
	if !ok {
		panic(fmt.Sprintf("dbkit: sql: %T has no QueryRowContext", q.ExecQuerier))
	}
	start := time.Now()
	row := rq.QueryRowContext(ctx, query, args...)
	q.observe(ctx, query, args, start, true, row.Err())
	return row
}
