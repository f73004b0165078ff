package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/sql-ls/internal/completion"
	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/internal/database"
	"github.com/woxQAQ/sql-ls/internal/schema"
	"github.com/woxQAQ/sql-ls/internal/sqlparse"
	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

type fakeBackend struct {
	name    string
	tables  []schema.ColumnRow
	result  *database.Result
	execErr error
	block   chan struct{} // delays KeywordHelp when set

	mu     sync.Mutex
	closed bool
}

func (f *fakeBackend) KeywordHelp(ctx context.Context) (map[string]string, error) {
	if f.block != nil {
		<-f.block
	}
	return map[string]string{"select": "Retrieves rows."}, nil
}

func (f *fakeBackend) SchemaColumns(context.Context) ([]schema.ColumnRow, error) {
	return f.tables, nil
}

func (f *fakeBackend) AllColumns(context.Context) ([]schema.ColumnRow, error) {
	return f.tables, nil
}

func (f *fakeBackend) Execute(context.Context, string) (*database.Result, error) {
	return f.result, f.execErr
}

func (f *fakeBackend) Databases(context.Context) ([]string, error) {
	return []string{"shop", "analytics"}, nil
}

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBackend) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testRegistry() *config.Registry {
	return config.NewRegistry([]config.Connection{
		{Alias: "dev", Driver: config.DriverMySQL, Host: "db", User: "root", Password: "hunter2", Database: "shop"},
		{Alias: "lite", Driver: config.DriverSQLite, Database: "/tmp/lite.db"},
	})
}

func newTestSession(t *testing.T, backends map[string]*fakeBackend) *Session {
	t.Helper()
	return New(Options{
		Registry: testRegistry(),
		Keywords: func(driver string) map[string]string {
			return map[string]string{"from": "Names the source.", "set": "Assignment list."}
		},
		Dial: func(conn config.Connection) (Backend, error) {
			b, ok := backends[conn.Alias]
			if !ok {
				return nil, errors.New("no backend")
			}
			return b, nil
		},
		Logger: zaptest.NewLogger(t),
	})
}

func ordersBackend(name string) *fakeBackend {
	return &fakeBackend{
		name: name,
		tables: []schema.ColumnRow{
			{Table: "orders", Column: "id"},
			{Table: "orders", Column: "total"},
		},
	}
}

func TestNew_KeywordOnly(t *testing.T) {
	s := newTestSession(t, nil)
	snap := s.Snapshot()
	assert.Nil(t, snap.Backend)
	assert.Equal(t, uint64(0), snap.Generation)
	assert.Equal(t, "Names the source.", s.Cache().Help("from"))
	assert.False(t, s.Cache().HasSchema())
}

func TestConnect_PublishesCache(t *testing.T) {
	dev := ordersBackend("dev")
	s := newTestSession(t, map[string]*fakeBackend{"dev": dev})

	require.NoError(t, s.ConnectDefault(context.Background(), s.Registry()))

	snap := s.Snapshot()
	assert.Equal(t, "dev", snap.Alias)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.NoError(t, snap.Err)
	assert.Len(t, s.Cache().TableColumns("orders"), 2)
	assert.Equal(t, "Retrieves rows.", s.Cache().Help("select"))
	assert.Equal(t, "Names the source.", s.Cache().Help("from"))
}

func TestConnect_UnknownAlias(t *testing.T) {
	s := newTestSession(t, nil)
	err := s.Connect(context.Background(), s.Registry(), "prod")

	var notFound *config.ConnectionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, uint64(0), s.Snapshot().Generation)
}

func TestConnect_SwitchClosesPrevious(t *testing.T) {
	dev, lite := ordersBackend("dev"), ordersBackend("lite")
	s := newTestSession(t, map[string]*fakeBackend{"dev": dev, "lite": lite})

	require.NoError(t, s.Connect(context.Background(), s.Registry(), "dev"))
	require.NoError(t, s.Connect(context.Background(), s.Registry(), "lite"))

	assert.Equal(t, "lite", s.Snapshot().Alias)
	assert.Equal(t, uint64(2), s.Snapshot().Generation)
	assert.True(t, dev.isClosed())
	assert.False(t, lite.isClosed())

	require.NoError(t, s.Close())
	assert.True(t, lite.isClosed())
}

func TestConnect_SupersededBuildIsDiscarded(t *testing.T) {
	slow := ordersBackend("dev")
	slow.block = make(chan struct{})
	fast := ordersBackend("lite")
	s := newTestSession(t, map[string]*fakeBackend{"dev": slow, "lite": fast})

	done := make(chan error, 1)
	go func() { done <- s.Connect(context.Background(), s.Registry(), "dev") }()

	// Wait for the slow build to take generation 1.
	require.Eventually(t, func() bool { return s.gen.Load() == 1 }, timeout, tick)
	require.NoError(t, s.Connect(context.Background(), s.Registry(), "lite"))

	close(slow.block)
	require.NoError(t, <-done)

	assert.Equal(t, "lite", s.Snapshot().Alias)
	assert.Equal(t, uint64(2), s.Snapshot().Generation)
	assert.True(t, slow.isClosed(), "superseded backend is released")
}

func TestConnect_UnreachableDatabaseServesKeywords(t *testing.T) {
	s := New(Options{
		Registry: testRegistry(),
		Keywords: func(string) map[string]string {
			return map[string]string{"select": "", "set": "", "from": ""}
		},
		Dial: func(conn config.Connection) (Backend, error) {
			c, err := database.New(conn, database.Options{
				Opener: func(string, string) (*sql.DB, error) {
					return nil, errors.New("dial tcp 10.0.0.1:3306: connect: connection refused")
				},
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Logger: zaptest.NewLogger(t),
	})

	err := s.ConnectDefault(context.Background(), s.Registry())
	var buildErr *schema.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, schema.StepKeywordHelp, buildErr.Step)

	snap := s.Snapshot()
	assert.Equal(t, "dev", snap.Alias)
	assert.Error(t, snap.Err)
	assert.False(t, snap.Cache.HasSchema())

	engine := completion.NewEngine(sqlparse.NewNativeParser(), zaptest.NewLogger(t))
	cands := engine.Complete("select s", protocol.Position{Line: 0, Character: 8}, s.Cache())
	require.Len(t, cands, 2)
	for _, c := range cands {
		assert.Equal(t, completion.TierKeyword, c.Tier)
	}

	assert.Contains(t, s.Execute(context.Background(), "select 1"), "Error:")
}

func TestConnect_DialFailure(t *testing.T) {
	s := newTestSession(t, map[string]*fakeBackend{})
	err := s.Connect(context.Background(), s.Registry(), "lite")
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "lite", snap.Alias)
	assert.Nil(t, snap.Backend)
	assert.Equal(t, "Names the source.", snap.Cache.Help("from"))
}

func TestExecute(t *testing.T) {
	dev := ordersBackend("dev")
	dev.result = &database.Result{
		Columns: []string{"id"},
		Rows:    []map[string]any{{"id": int64(42)}},
	}
	s := newTestSession(t, map[string]*fakeBackend{"dev": dev})

	assert.Contains(t, s.Execute(context.Background(), "select 1"), "no active database connection")

	require.NoError(t, s.ConnectDefault(context.Background(), s.Registry()))
	assert.Equal(t, "Nothing to execute", s.Execute(context.Background(), "  \n"))
	assert.Contains(t, s.Execute(context.Background(), "select id from orders"), "42")

	dev.execErr = errors.New("Table 'shop.nope' doesn't exist")
	assert.Equal(t, "Error: Table 'shop.nope' doesn't exist", s.Execute(context.Background(), "select * from nope"))
}

func TestDatabases(t *testing.T) {
	s := newTestSession(t, map[string]*fakeBackend{"dev": ordersBackend("dev")})
	assert.Contains(t, s.Databases(context.Background()), "Error:")

	require.NoError(t, s.ConnectDefault(context.Background(), s.Registry()))
	assert.Equal(t, "shop\nanalytics", s.Databases(context.Background()))
}

func TestConnections(t *testing.T) {
	s := newTestSession(t, map[string]*fakeBackend{"dev": ordersBackend("dev")})
	require.NoError(t, s.ConnectDefault(context.Background(), s.Registry()))

	out := s.Connections(s.Registry())
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "password=******")
	assert.Contains(t, out, "* dev:")
	assert.Contains(t, out, "  lite:")
}

func TestConnectDefault_NoConnections(t *testing.T) {
	s := New(Options{Logger: zaptest.NewLogger(t)})
	assert.NoError(t, s.ConnectDefault(context.Background(), s.Registry()))
	assert.Nil(t, s.Snapshot().Backend)
}

func TestConnect_WorkspaceRegistry(t *testing.T) {
	other := ordersBackend("other")
	s := newTestSession(t, map[string]*fakeBackend{"other": other})
	workspace := config.NewRegistry([]config.Connection{{Alias: "other", Driver: config.DriverSQLite}})

	var notFound *config.ConnectionNotFoundError
	require.ErrorAs(t, s.Connect(context.Background(), s.Registry(), "other"), &notFound)

	require.NoError(t, s.Connect(context.Background(), workspace, "other"))
	assert.Equal(t, "other", s.Snapshot().Alias)
	assert.Equal(t, []string{"dev", "lite"}, s.Registry().Aliases())
	assert.Contains(t, s.Connections(workspace), "* other:")
	assert.NotContains(t, s.Connections(s.Registry()), "* dev:")
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
