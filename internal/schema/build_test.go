package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeCatalog struct {
	help    map[string]string
	schema  []ColumnRow
	all     []ColumnRow
	helpErr error
	colsErr error
	allErr  error
}

func (f *fakeCatalog) KeywordHelp(context.Context) (map[string]string, error) {
	return f.help, f.helpErr
}

func (f *fakeCatalog) SchemaColumns(context.Context) ([]ColumnRow, error) {
	return f.schema, f.colsErr
}

func (f *fakeCatalog) AllColumns(context.Context) ([]ColumnRow, error) {
	return f.all, f.allErr
}

func ordersCatalog() *fakeCatalog {
	rows := []ColumnRow{
		{Table: "orders", Column: "id", Type: "int", Nullable: "NO", Key: "PRI"},
		{Table: "orders", Column: "total", Type: "decimal(10,2)", Nullable: "YES"},
		{Table: "users", Column: "id", Type: "bigint", Nullable: "NO", Key: "PRI"},
		{Table: "users", Column: "name", Type: "varchar(64)", Nullable: "YES", Default: "'anon'"},
	}
	return &fakeCatalog{
		help:   map[string]string{"SELECT": "Retrieves rows.", "Count": "Counts rows."},
		schema: rows,
		all:    rows,
	}
}

func columnNames(cols []ColumnInfo) []string {
	var out []string
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out
}

func TestBuild_OrdersRoundTrip(t *testing.T) {
	cache, err := Build(context.Background(), ordersCatalog(), BuildOptions{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "total"}, columnNames(cache.TableColumns("orders")))
	assert.Nil(t, cache.TableColumns("missing"))
}

func TestBuild_IndexesTablesAndHelp(t *testing.T) {
	cache, err := Build(context.Background(), ordersCatalog(), BuildOptions{
		BaseHelp:   map[string]string{"from": "Names the source.", "select": "base"},
		Generation: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cache.Generation())
	assert.True(t, cache.HasSchema())
	assert.Equal(t, "Retrieves rows.", cache.Help("select"), "catalog help overrides the base dictionary")
	assert.Equal(t, "Counts rows.", cache.Help("COUNT"))
	assert.Equal(t, "Names the source.", cache.Help("from"))
	assert.Equal(t, "", cache.Help("nope"))
	assert.Equal(t, []string{"count", "from", "select"}, cache.Keywords())

	tables := cache.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Contains(t, tables[0].Description, "COLUMN_NAME")
	assert.Contains(t, tables[0].Description, "decimal(10,2)")
}

func TestBuild_AllColumnsLastWriteWins(t *testing.T) {
	cache, err := Build(context.Background(), ordersCatalog(), BuildOptions{})
	require.NoError(t, err)

	cols := cache.Columns()
	assert.Equal(t, []string{"id", "name", "total"}, columnNames(cols))
	assert.Equal(t, "users", cols[0].TableName)
}

func TestBuild_AllColumnsReinforcesTables(t *testing.T) {
	cat := ordersCatalog()
	cat.all = append(cat.all, ColumnRow{Table: "orders", Column: "placed_at", Type: "datetime"})

	cache, err := Build(context.Background(), cat, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "placed_at", "total"}, columnNames(cache.TableColumns("orders")))
}

func TestBuild_FatalSteps(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name string
		mut  func(*fakeCatalog)
		step string
	}{
		{"keyword help", func(f *fakeCatalog) { f.helpErr = boom }, StepKeywordHelp},
		{"schema columns", func(f *fakeCatalog) { f.colsErr = boom }, StepSchemaColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := ordersCatalog()
			tt.mut(cat)
			cache, err := Build(context.Background(), cat, BuildOptions{})
			assert.Nil(t, cache)

			var buildErr *BuildError
			require.ErrorAs(t, err, &buildErr)
			assert.Equal(t, tt.step, buildErr.Step)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestBuild_AllColumnsFailureFallsBack(t *testing.T) {
	cat := ordersCatalog()
	cat.allErr = errors.New("permission denied")

	cache, err := Build(context.Background(), cat, BuildOptions{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "total"}, columnNames(cache.Columns()))
}

func TestKeywordOnly(t *testing.T) {
	cache := KeywordOnly(map[string]string{"SELECT": "Retrieves rows."}, 3)
	assert.False(t, cache.HasSchema())
	assert.Equal(t, "Retrieves rows.", cache.Help("select"))
	assert.Empty(t, cache.Tables())
	assert.Empty(t, cache.Columns())
	assert.Equal(t, uint64(3), cache.Generation())
}

func TestNilCache(t *testing.T) {
	var cache *Cache
	assert.Equal(t, "", cache.Help("select"))
	assert.Nil(t, cache.Tables())
	assert.Nil(t, cache.Columns())
	assert.Nil(t, cache.TableColumns("orders"))
	assert.False(t, cache.HasSchema())
}

func TestColumnInfoString(t *testing.T) {
	col := ColumnInfo{Name: "id", Type: "int", Nullable: "NO", Key: "PRI", Default: "0"}
	assert.Equal(t, "id int NOT NULL PRI DEFAULT 0", col.String())
	assert.Equal(t, "name", ColumnInfo{Name: "name"}.String())
}
