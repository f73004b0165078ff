// Package session holds the server's active connection and the schema cache
// built for it. Both are published together as an immutable snapshot that
// is swapped atomically, so readers never observe a half-built cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/internal/database"
	"github.com/woxQAQ/sql-ls/internal/schema"
)

// Backend is a live database connection.
type Backend interface {
	schema.Catalog
	Execute(ctx context.Context, query string) (*database.Result, error)
	Databases(ctx context.Context) ([]string, error)
	Close() error
}

// Dialer creates a backend for a configured connection.
type Dialer func(conn config.Connection) (Backend, error)

// Snapshot is the published (connection, cache) pair.
type Snapshot struct {
	Alias      string
	Connection config.Connection
	Backend    Backend // nil when no connection was configured or dialled
	Cache      *schema.Cache
	Generation uint64
	Err        error // why the cache is keyword-only, if it is
}

// Options configures a Session.
type Options struct {
	// Registry holds the connections of the server configuration.
	Registry *config.Registry
	// Keywords returns the static dictionary for a driver.
	Keywords func(driver string) map[string]string
	Dial     Dialer
	// BuildTimeout bounds one schema cache build.
	BuildTimeout time.Duration
	Logger       *zap.Logger
}

// Session is safe for concurrent use.
type Session struct {
	opts     Options
	logger   *zap.Logger
	gen      atomic.Uint64
	current  atomic.Pointer[Snapshot]
	registry *config.Registry
}

// New returns a session serving keyword-only completions until Connect
// succeeds.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Keywords == nil {
		opts.Keywords = func(string) map[string]string { return nil }
	}
	if opts.Registry == nil {
		opts.Registry = config.NewRegistry(nil)
	}
	s := &Session{
		opts:     opts,
		logger:   opts.Logger.With(zap.String("component", "session")),
		registry: opts.Registry,
	}
	s.current.Store(&Snapshot{Cache: schema.KeywordOnly(opts.Keywords(""), 0)})
	return s
}

// Snapshot returns the currently published state.
func (s *Session) Snapshot() *Snapshot {
	return s.current.Load()
}

// Cache returns the current schema cache.
func (s *Session) Cache() *schema.Cache {
	return s.Snapshot().Cache
}

// Registry returns the connections of the server configuration. Workspaces
// layer their own registries over it and pass them to Connect.
func (s *Session) Registry() *config.Registry {
	return s.registry
}

// ConnectDefault connects to the first connection in reg. Without any
// configured connection it does nothing.
func (s *Session) ConnectDefault(ctx context.Context, reg *config.Registry) error {
	conn, ok := reg.Default()
	if !ok {
		s.logger.Info("no connections configured, serving keywords only")
		return nil
	}
	return s.connect(ctx, conn)
}

// Connect switches to the connection reg names alias and rebuilds the schema
// cache. On a failed build a keyword-only cache is published and the error
// returned; the server keeps working either way. When builds overlap, the
// most recently started one wins.
func (s *Session) Connect(ctx context.Context, reg *config.Registry, alias string) error {
	conn, err := reg.Lookup(alias)
	if err != nil {
		return err
	}
	return s.connect(ctx, conn)
}

func (s *Session) connect(ctx context.Context, conn config.Connection) error {
	alias := conn.Alias
	gen := s.gen.Add(1)
	logger := s.logger.With(zap.String("alias", alias), zap.Uint64("generation", gen))
	base := s.opts.Keywords(conn.Driver)

	backend, err := s.opts.Dial(conn)
	if err != nil {
		logger.Warn("failed to create connection", zap.Error(err))
		s.publish(&Snapshot{
			Alias: alias, Connection: conn, Generation: gen,
			Cache: schema.KeywordOnly(base, gen), Err: err,
		})
		return err
	}

	if s.opts.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.BuildTimeout)
		defer cancel()
	}

	start := time.Now()
	cache, err := schema.Build(ctx, backend, schema.BuildOptions{
		BaseHelp:   base,
		Generation: gen,
		Logger:     s.opts.Logger,
	})
	next := &Snapshot{Alias: alias, Connection: conn, Backend: backend, Cache: cache, Generation: gen}
	if err != nil {
		logger.Warn("schema cache unavailable, serving keywords only", zap.Error(err))
		next.Cache = schema.KeywordOnly(base, gen)
		next.Err = err
	} else {
		logger.Info("connection active", zap.Duration("build", time.Since(start)))
	}

	if !s.publish(next) {
		logger.Debug("discarding superseded cache build")
	}
	return err
}

// publish installs next unless a newer generation is already visible.
func (s *Session) publish(next *Snapshot) bool {
	for {
		cur := s.current.Load()
		if cur.Generation > next.Generation {
			closeBackend(next.Backend, cur.Backend, s.logger)
			return false
		}
		if s.current.CompareAndSwap(cur, next) {
			closeBackend(cur.Backend, next.Backend, s.logger)
			return true
		}
	}
}

func closeBackend(old, keep Backend, logger *zap.Logger) {
	if old == nil || old == keep {
		return
	}
	if err := old.Close(); err != nil {
		logger.Debug("failed to close previous connection", zap.Error(err))
	}
}

// Execute runs query on the active connection and renders the outcome.
// Failures are rendered too; Execute never returns an error.
func (s *Session) Execute(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Nothing to execute"
	}
	snap := s.Snapshot()
	if snap.Backend == nil {
		return database.RenderError(errNoConnection)
	}

	res, err := snap.Backend.Execute(ctx, query)
	if err != nil {
		s.logger.Info("query failed", zap.String("alias", snap.Alias), zap.Error(err))
		return database.RenderError(err)
	}
	return database.Render(res)
}

var errNoConnection = errors.New("no active database connection")

// Databases lists the databases of the active connection as display text.
func (s *Session) Databases(ctx context.Context) string {
	snap := s.Snapshot()
	if snap.Backend == nil {
		return database.RenderError(errNoConnection)
	}
	names, err := snap.Backend.Databases(ctx)
	if err != nil {
		return database.RenderError(err)
	}
	return strings.Join(names, "\n")
}

// Connections describes the connections in reg with passwords masked,
// marking the active one.
func (s *Session) Connections(reg *config.Registry) string {
	active := s.Snapshot().Alias
	var sb strings.Builder
	for _, c := range reg.All() {
		c = c.Masked()
		marker := " "
		if c.Alias == active {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %s: driver=%s host=%s port=%d user=%s password=%s database=%s\n",
			marker, c.Alias, c.Driver, c.Host, c.Port, c.User, c.Password, c.Database)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Close releases the active connection.
func (s *Session) Close() error {
	snap := s.current.Swap(&Snapshot{Cache: s.Cache(), Generation: s.gen.Add(1)})
	if snap.Backend != nil {
		return snap.Backend.Close()
	}
	return nil
}

// DefaultDialer opens connections through the database package.
func DefaultDialer(cfg config.DatabaseConfig, logger *zap.Logger) Dialer {
	return func(conn config.Connection) (Backend, error) {
		client, err := database.New(conn, database.Options{
			ConnectTimeout: cfg.ConnectTimeout,
			QueryTimeout:   cfg.QueryTimeout,
			MaxRows:        cfg.MaxRows,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
