package schema

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/woxQAQ/sql-ls/internal/render"
)

// ColumnRow is one row of a column catalog read.
type ColumnRow struct {
	Schema   string
	Table    string
	Column   string
	Type     string
	Nullable string
	Key      string
	Default  string
}

// Catalog reads database metadata. Implementations live in the database
// package, one per driver.
type Catalog interface {
	// KeywordHelp returns built-in keyword and function descriptions.
	KeywordHelp(ctx context.Context) (map[string]string, error)
	// SchemaColumns returns the columns of every table in the active schema,
	// ordered by table then column position.
	SchemaColumns(ctx context.Context) ([]ColumnRow, error)
	// AllColumns returns the full column catalog.
	AllColumns(ctx context.Context) ([]ColumnRow, error)
}

// Build steps, reported by BuildError.
const (
	StepKeywordHelp   = "keyword help"
	StepSchemaColumns = "schema columns"
	StepAllColumns    = "all columns"
)

// BuildError reports a fatal failure while building a cache.
type BuildError struct {
	Step string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("schema cache build failed at %s: %v", e.Step, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// BuildOptions configures Build.
type BuildOptions struct {
	// BaseHelp is merged under the catalog's keyword help.
	BaseHelp   map[string]string
	Generation uint64
	Logger     *zap.Logger
}

var descriptionColumns = []string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY", "COLUMN_DEFAULT"}

// Build reads the catalog in three sequential steps and returns a complete
// cache. Failure of the first two steps is fatal; a failed full column read
// falls back to the schema-scoped columns.
func Build(ctx context.Context, catalog Catalog, opts BuildOptions) (*Cache, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "schema"), zap.Uint64("generation", opts.Generation))

	c := newCache(opts.Generation)
	for k, v := range opts.BaseHelp {
		c.helpIndex[strings.ToLower(k)] = v
	}

	help, err := catalog.KeywordHelp(ctx)
	if err != nil {
		return nil, &BuildError{Step: StepKeywordHelp, Err: err}
	}
	for k, v := range help {
		c.helpIndex[strings.ToLower(k)] = v
	}

	rows, err := catalog.SchemaColumns(ctx)
	if err != nil {
		return nil, &BuildError{Step: StepSchemaColumns, Err: err}
	}
	descRows := make(map[string][]map[string]any)
	var order []string
	for _, r := range rows {
		if _, ok := descRows[r.Table]; !ok {
			order = append(order, r.Table)
		}
		descRows[r.Table] = append(descRows[r.Table], map[string]any{
			"COLUMN_NAME":    r.Column,
			"COLUMN_TYPE":    r.Type,
			"IS_NULLABLE":    r.Nullable,
			"COLUMN_KEY":     r.Key,
			"COLUMN_DEFAULT": nullable(r.Default),
		})
		c.addColumn(r)
	}
	for _, table := range order {
		c.tableIndex[table] = TableInfo{
			Name:        table,
			Description: render.Table(descriptionColumns, descRows[table]),
		}
	}

	all, err := catalog.AllColumns(ctx)
	if err != nil {
		logger.Warn("full column catalog unavailable, using schema columns",
			zap.Error(&BuildError{Step: StepAllColumns, Err: err}))
		for _, table := range order {
			for _, col := range sortedColumns(c.columnsByTable[table]) {
				c.allColumns[col.Name] = col
			}
		}
	} else {
		for _, r := range all {
			col := c.addColumn(r)
			c.allColumns[col.Name] = col
		}
	}

	logger.Info("schema cache built",
		zap.Int("keywords", len(c.helpIndex)),
		zap.Int("tables", len(c.tableIndex)),
		zap.Int("columns", len(c.allColumns)))
	return c, nil
}

func (c *Cache) addColumn(r ColumnRow) ColumnInfo {
	col := ColumnInfo{
		Name:      r.Column,
		Type:      r.Type,
		Default:   r.Default,
		Nullable:  r.Nullable,
		Key:       r.Key,
		TableName: r.Table,
	}
	cols, ok := c.columnsByTable[r.Table]
	if !ok {
		cols = make(map[string]ColumnInfo)
		c.columnsByTable[r.Table] = cols
	}
	cols[r.Column] = col
	return col
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
