// Package database connects to the configured databases, runs statements for
// the editor and reads the metadata catalogs behind the schema cache.
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/woxQAQ/sql-ls/internal/config"
)

// Opener opens a database handle; sql.Open in production.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Options configures a Client.
type Options struct {
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	// MaxRows caps the rows collected per result; 0 means unlimited.
	MaxRows int
	Opener  Opener
	Logger  *zap.Logger
}

// Result is the outcome of one statement. Rows map column names to values.
type Result struct {
	Columns   []string
	Rows      []map[string]any
	Truncated bool
}

// Client is a reconnectable handle on one configured connection.
type Client struct {
	conn       config.Connection
	driverName string
	dsn        string
	opts       Options
	logger     *zap.Logger

	mu sync.Mutex
	db *sql.DB
}

// New validates conn and returns an unconnected client.
func New(conn config.Connection, opts Options) (*Client, error) {
	driverName, dsn, err := DSN(conn)
	if err != nil {
		return nil, err
	}
	if opts.Opener == nil {
		opts.Opener = sql.Open
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		conn:       conn,
		driverName: driverName,
		dsn:        dsn,
		opts:       opts,
		logger: opts.Logger.With(
			zap.String("component", "database"),
			zap.String("alias", conn.Alias),
			zap.String("driver", conn.Driver)),
	}, nil
}

// Connect opens and pings the database if not already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	db, err := c.opts.Opener(c.driverName, c.dsn)
	if err != nil {
		return &ConnectError{Alias: c.conn.Alias, Err: err}
	}

	if c.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &ConnectError{Alias: c.conn.Alias, Err: err}
	}

	c.db = db
	c.logger.Info("connected")
	return nil
}

// Reconnect drops the current handle and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Debug("close before reconnect failed", zap.Error(err))
		}
		c.db = nil
	}
	return c.connectLocked(ctx)
}

// Close releases the handle.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Client) handle(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}
	return c.db, nil
}

// Execute runs query and collects its rows. A transient failure triggers one
// reconnect and a second attempt; rows read by a failed attempt are never
// returned.
func (c *Client) Execute(ctx context.Context, query string) (*Result, error) {
	res, err := c.run(ctx, query)
	if err == nil {
		return res, nil
	}
	if !IsTransient(err) {
		return nil, &QueryError{Query: query, Err: err}
	}

	c.logger.Warn("transient failure, reconnecting", zap.Error(err))
	if rerr := c.Reconnect(ctx); rerr != nil {
		return nil, &QueryError{Query: query, Err: errors.Join(err, rerr)}
	}

	res, err = c.run(ctx, query)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return res, nil
}

func (c *Client) run(ctx context.Context, query string) (*Result, error) {
	db, err := c.handle(ctx)
	if err != nil {
		return nil, err
	}

	if c.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.QueryTimeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		if c.opts.MaxRows > 0 && len(res.Rows) >= c.opts.MaxRows {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// IsTransient reports whether err indicates a broken connection worth one
// reconnect.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
