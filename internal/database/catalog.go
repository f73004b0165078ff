package database

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/internal/schema"
)

// catalogQueries are the metadata reads for one driver. Column queries select
// schema, table, column, type, nullable, key and default, in that order.
type catalogQueries struct {
	help          string
	helpOptional  bool
	schemaColumns string
	allColumns    string
	databases     string
}

const mysqlColumns = `SELECT c.table_schema, c.table_name, c.column_name, c.column_type,
       c.is_nullable, c.column_key, c.column_default
FROM information_schema.columns c
WHERE c.table_schema = DATABASE()
ORDER BY c.table_name, c.ordinal_position`

const postgresColumns = `SELECT c.table_schema, c.table_name, c.column_name, c.data_type,
       c.is_nullable,
       CASE WHEN EXISTS (
           SELECT 1 FROM information_schema.key_column_usage k
           JOIN information_schema.table_constraints t
             ON t.constraint_name = k.constraint_name AND t.table_schema = k.table_schema
           WHERE t.constraint_type = 'PRIMARY KEY'
             AND k.table_schema = c.table_schema AND k.table_name = c.table_name
             AND k.column_name = c.column_name) THEN 'PRI' ELSE '' END,
       c.column_default
FROM information_schema.columns c
WHERE c.table_schema = current_schema()
ORDER BY c.table_name, c.ordinal_position`

const sqliteColumns = `SELECT 'main', m.name, p.name, p.type,
       CASE WHEN p."notnull" THEN 'NO' ELSE 'YES' END,
       CASE WHEN p.pk > 0 THEN 'PRI' ELSE '' END,
       p.dflt_value
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
ORDER BY m.name, p.cid`

var catalogs = map[string]catalogQueries{
	config.DriverMySQL: {
		help:          `SELECT name, description FROM mysql.help_topic`,
		schemaColumns: mysqlColumns,
		allColumns:    mysqlColumns,
		databases:     `SHOW DATABASES`,
	},
	config.DriverPostgres: {
		help: `SELECT p.proname, COALESCE(obj_description(p.oid, 'pg_proc'), '')
FROM pg_proc p`,
		schemaColumns: postgresColumns,
		allColumns:    postgresColumns,
		databases:     `SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname`,
	},
	config.DriverSQLite: {
		help:          `SELECT DISTINCT name, '' FROM pragma_function_list`,
		helpOptional:  true,
		schemaColumns: sqliteColumns,
		allColumns:    sqliteColumns,
		databases:     `SELECT name FROM pragma_database_list`,
	},
}

// Catalog reads schema metadata through c.
type Catalog struct {
	client  *Client
	queries catalogQueries
}

// Catalog returns the metadata reader for the client's driver.
func (c *Client) Catalog() *Catalog {
	return &Catalog{client: c, queries: catalogs[c.conn.Driver]}
}

var _ schema.Catalog = (*Catalog)(nil)

// KeywordHelp reads built-in keyword and function descriptions.
func (cat *Catalog) KeywordHelp(ctx context.Context) (map[string]string, error) {
	help := make(map[string]string)
	err := cat.query(ctx, cat.queries.help, func(rows *sql.Rows) error {
		var name, desc sql.NullString
		if err := rows.Scan(&name, &desc); err != nil {
			return err
		}
		if name.Valid {
			help[strings.ToLower(name.String)] = desc.String
		}
		return nil
	})
	if err != nil && cat.queries.helpOptional {
		cat.client.logger.Debug("keyword help catalog unavailable", zap.Error(err))
		return map[string]string{}, nil
	}
	return help, err
}

// SchemaColumns reads the columns of the active schema.
func (cat *Catalog) SchemaColumns(ctx context.Context) ([]schema.ColumnRow, error) {
	return cat.columns(ctx, cat.queries.schemaColumns)
}

// AllColumns reads the column catalog used for unqualified completion. It is
// scoped to the active schema like SchemaColumns.
func (cat *Catalog) AllColumns(ctx context.Context) ([]schema.ColumnRow, error) {
	return cat.columns(ctx, cat.queries.allColumns)
}

// Databases lists the databases visible to the connection.
func (cat *Catalog) Databases(ctx context.Context) ([]string, error) {
	var out []string
	err := cat.query(ctx, cat.queries.databases, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		out = append(out, name)
		return nil
	})
	return out, err
}

func (cat *Catalog) columns(ctx context.Context, query string) ([]schema.ColumnRow, error) {
	var out []schema.ColumnRow
	err := cat.query(ctx, query, func(rows *sql.Rows) error {
		var s, table, col, typ, nullable, key, def sql.NullString
		if err := rows.Scan(&s, &table, &col, &typ, &nullable, &key, &def); err != nil {
			return err
		}
		out = append(out, schema.ColumnRow{
			Schema:   s.String,
			Table:    table.String,
			Column:   col.String,
			Type:     typ.String,
			Nullable: nullable.String,
			Key:      key.String,
			Default:  def.String,
		})
		return nil
	})
	return out, err
}

func (cat *Catalog) query(ctx context.Context, query string, scan func(*sql.Rows) error) error {
	if query == "" {
		return &UnsupportedDriverError{Driver: cat.client.conn.Driver}
	}
	db, err := cat.client.handle(ctx)
	if err != nil {
		return err
	}

	if cat.client.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cat.client.opts.QueryTimeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return &QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return &QueryError{Query: query, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &QueryError{Query: query, Err: err}
	}
	return nil
}

// KeywordHelp lets a Client serve as a schema.Catalog directly.
func (c *Client) KeywordHelp(ctx context.Context) (map[string]string, error) {
	return c.Catalog().KeywordHelp(ctx)
}

func (c *Client) SchemaColumns(ctx context.Context) ([]schema.ColumnRow, error) {
	return c.Catalog().SchemaColumns(ctx)
}

func (c *Client) AllColumns(ctx context.Context) ([]schema.ColumnRow, error) {
	return c.Catalog().AllColumns(ctx)
}

func (c *Client) Databases(ctx context.Context) ([]string, error) {
	return c.Catalog().Databases(ctx)
}
