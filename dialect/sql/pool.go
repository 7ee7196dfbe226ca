package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
)

// DefaultIdleTimeout is how long an unreferenced pool is kept before the
// sweeper closes it.
const DefaultIdleTimeout = 30 * time.Second

// OpenFunc opens a *sql.DB for a dialect and data source name.
type OpenFunc func(name, dsn string) (*sql.DB, error)

// PoolLimits configures the connection limits applied to every new pool.
type PoolLimits struct {
	MinIdle           int
	MaxOpen           int
	IdleTimeout       time.Duration
	ConnectionTimeout time.Duration
}

// PoolManager keeps one reference-counted *sql.DB per pool key. Acquire
// increments the count and Release decrements it; pools without references
// are closed by Sweep once idle longer than the idle timeout.
type PoolManager struct {
	mu     sync.Mutex
	pools  map[string]*pooled
	open   OpenFunc
	limits PoolLimits
	idle   time.Duration
	logger *slog.Logger
	now    func() time.Time
}

type pooled struct {
	db       *sql.DB
	dialect  string
	refs     int
	lastUsed time.Time
}

// PoolOption configures a PoolManager.
type PoolOption func(*PoolManager)

// WithOpener sets the function used to open new pools.
func WithOpener(open OpenFunc) PoolOption {
	return func(m *PoolManager) {
		m.open = open
	}
}

// WithIdleTimeout sets the inactivity threshold used by Sweep.
func WithIdleTimeout(d time.Duration) PoolOption {
	return func(m *PoolManager) {
		m.idle = d
	}
}

// WithPoolLimits sets the connection limits of new pools.
func WithPoolLimits(l PoolLimits) PoolOption {
	return func(m *PoolManager) {
		m.limits = l
	}
}

// WithPoolLogger sets the logger. Defaults to slog.Default().
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(m *PoolManager) {
		m.logger = l
	}
}

// NewPoolManager returns an empty PoolManager.
func NewPoolManager(opts ...PoolOption) *PoolManager {
	m := &PoolManager{
		pools: make(map[string]*pooled),
		open:  openDB,
		idle:  DefaultIdleTimeout,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

func openDB(name, dsn string) (*sql.DB, error) {
	drv, err := Open(name, dsn)
	if err != nil {
		return nil, err
	}
	return drv.DB(), nil
}

// PoolKey returns the pool key of a connection described by its parts.
func PoolKey(host string, port int, database, user string) string {
	return fmt.Sprintf("%s:%d/%s@%s", host, port, database, user)
}

// Lease is a counted reference to a pooled *sql.DB.
type Lease struct {
	DB      *sql.DB
	Dialect string
	key     string
	m       *PoolManager
	once    sync.Once
}

// Release returns the reference to the manager. It is safe to call
// Release more than once.
func (l *Lease) Release() {
	l.once.Do(func() { l.m.release(l.key) })
}

// Acquire returns a lease on the pool for dsn, opening it on first use.
func (m *PoolManager) Acquire(ctx context.Context, name, dsn string) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canonical, ok := dialect.Normalize(name)
	if !ok {
		return nil, dbkit.NewInvalidArgumentError("sql.Acquire", name, "unknown dialect")
	}
	key := canonical + "|" + dsn
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[key]
	if !ok {
		db, err := m.open(canonical, dsn)
		if err != nil {
			return nil, err
		}
		m.applyLimits(db)
		p = &pooled{db: db, dialect: canonical}
		m.pools[key] = p
		m.logger.Debug("pool opened", "dialect", canonical, "pools", len(m.pools))
	}
	p.refs++
	p.lastUsed = m.now()
	return &Lease{DB: p.db, Dialect: canonical, key: key, m: m}, nil
}

func (m *PoolManager) applyLimits(db *sql.DB) {
	if m.limits.MaxOpen > 0 {
		db.SetMaxOpenConns(m.limits.MaxOpen)
	}
	if m.limits.MinIdle > 0 {
		db.SetMaxIdleConns(m.limits.MinIdle)
	}
	if m.limits.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(m.limits.IdleTimeout)
	}
}

func (m *PoolManager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[key]
	if !ok {
		return
	}
	if p.refs > 0 {
		p.refs--
	}
	p.lastUsed = m.now()
}

// Refs returns the reference count of the pool for dsn.
func (m *PoolManager) Refs(name, dsn string) int {
	canonical, _ := dialect.Normalize(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[canonical+"|"+dsn]; ok {
		return p.refs
	}
	return 0
}

// Len returns the number of open pools.
func (m *PoolManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pools)
}

// Sweep closes pools that have no references and were idle longer than
// the idle timeout. It returns the number of closed pools.
func (m *PoolManager) Sweep() int {
	m.mu.Lock()
	var stale []*pooled
	now := m.now()
	for key, p := range m.pools {
		if p.refs == 0 && now.Sub(p.lastUsed) > m.idle {
			stale = append(stale, p)
			delete(m.pools, key)
		}
	}
	m.mu.Unlock()
	for _, p := range stale {
		if err := p.db.Close(); err != nil {
			m.logger.Warn("closing idle pool", "dialect", p.dialect, "error", err)
		}
	}
	if len(stale) > 0 {
		m.logger.Debug("idle pools swept", "closed", len(stale))
	}
	return len(stale)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *PoolManager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Close closes every pool regardless of its reference count.
func (m *PoolManager) Close() error {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]*pooled)
	m.mu.Unlock()
	var errs []error
	for _, p := range pools {
		if err := p.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return dbkit.NewAggregateError(errs...)
}

// WithClient runs fn with a dedicated connection from the pool for dsn.
// The connection and the pool reference are released on every exit path.
func (m *PoolManager) WithClient(ctx context.Context, name, dsn string, fn func(context.Context, *sql.Conn) error) error {
	lease, err := m.Acquire(ctx, name, dsn)
	if err != nil {
		return err
	}
	defer lease.Release()
	conn, err := lease.DB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, conn)
}

// WithTransaction runs fn inside a transaction. The transaction is
// committed when fn succeeds and rolled back when fn fails or panics.
func (m *PoolManager) WithTransaction(ctx context.Context, name, dsn string, fn func(context.Context, *sql.Tx) error) error {
	return m.WithClient(ctx, name, dsn, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if v := recover(); v != nil {
				_ = tx.Rollback()
				panic(v)
			}
		}()
		if err := fn(ctx, tx); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				return errors.Join(err, &dbkit.RollbackError{Err: rerr})
			}
			return err
		}
		return tx.Commit()
	})
}
