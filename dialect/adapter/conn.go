package adapter

import (
	"context"
	stdsql "database/sql"
	"slices"

	"github.com/syssam/dbkit"
	inspect "github.com/syssam/dbkit/dialect/sql/schema"
	"github.com/syssam/dbkit/schema"
)

// connect opens a handle limited to a single connection. Every operation
// owns its handle and closes it before returning.
func (c *core) connect(src Source) (*stdsql.DB, error) {
	if src == nil {
		return nil, dbkit.NewInvalidArgumentError("adapter.Connect", "source", "connection source is required")
	}
	dsn, err := src.DSN(c.info.Name)
	if err != nil {
		return nil, err
	}
	var db *stdsql.DB
	if c.opts.open != nil {
		db, err = c.opts.open(c.info.Name, dsn)
	} else {
		db, err = c.ops.openDB(dsn)
	}
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func (c *core) closeDB(ctx context.Context, db *stdsql.DB) {
	if err := db.Close(); err != nil {
		c.opts.logger.WarnContext(ctx, "close adapter connection", "dialect", c.info.Name, "error", err)
	}
}

func (c *core) withInspector(ctx context.Context, src Source, opts []inspect.Option, fn func(*inspect.Inspector) error) error {
	db, err := c.connect(src)
	if err != nil {
		return err
	}
	defer c.closeDB(ctx, db)
	all := append([]inspect.Option{inspect.WithLogger(c.opts.logger)}, slices.Concat(c.opts.inspect, opts)...)
	insp, err := inspect.NewInspector(db, c.info.Name, all...)
	if err != nil {
		return err
	}
	return fn(insp)
}

// Introspect reads the schema of the database behind src.
func (c *core) Introspect(ctx context.Context, src Source, opts ...inspect.Option) (*schema.Bundle, error) {
	var b *schema.Bundle
	err := c.withInspector(ctx, src, opts, func(i *inspect.Inspector) (err error) {
		b, err = i.Inspect(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *core) IntrospectTable(ctx context.Context, src Source, table string) (*schema.Table, error) {
	var t *schema.Table
	err := c.withInspector(ctx, src, nil, func(i *inspect.Inspector) (err error) {
		t, err = i.InspectTable(ctx, table)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *core) ListTables(ctx context.Context, src Source) ([]string, error) {
	var names []string
	err := c.withInspector(ctx, src, nil, func(i *inspect.Inspector) (err error) {
		names, err = i.ListTables(ctx)
		return err
	})
	return names, err
}

func (c *core) ListSchemas(ctx context.Context, src Source) ([]string, error) {
	var names []string
	err := c.withInspector(ctx, src, nil, func(i *inspect.Inspector) (err error) {
		names, err = i.ListSchemas(ctx)
		return err
	})
	return names, err
}

func (c *core) GetDatabaseVersion(ctx context.Context, src Source) (string, error) {
	var v string
	err := c.withInspector(ctx, src, nil, func(i *inspect.Inspector) (err error) {
		v, err = i.Version(ctx)
		return err
	})
	return v, err
}

// TestConnection opens a connection and pings the server.
func (c *core) TestConnection(ctx context.Context, src Source) error {
	db, err := c.connect(src)
	if err != nil {
		return err
	}
	defer c.closeDB(ctx, db)
	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return dbkit.NewCatalogError(c.info.Name, "connect", err)
	}
	c.opts.logger.DebugContext(ctx, "connection ok", "dialect", c.info.Name)
	return nil
}
