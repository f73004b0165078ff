// Package schema holds the in-memory snapshot of database metadata used for
// completion and hover: keyword help, tables and their columns.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// TableInfo describes one table of the active schema.
type TableInfo struct {
	Name        string
	Description string // tabulated column metadata
}

// ColumnInfo describes one column.
type ColumnInfo struct {
	Name      string
	Type      string
	Default   string
	Nullable  string
	Key       string
	TableName string
}

func (c ColumnInfo) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	if c.Type != "" {
		sb.WriteString(" ")
		sb.WriteString(c.Type)
	}
	if strings.EqualFold(c.Nullable, "NO") {
		sb.WriteString(" NOT NULL")
	}
	if c.Key != "" {
		sb.WriteString(" ")
		sb.WriteString(c.Key)
	}
	if c.Default != "" {
		fmt.Fprintf(&sb, " DEFAULT %s", c.Default)
	}
	return sb.String()
}

// Cache is an immutable metadata snapshot. A nil *Cache behaves as empty.
type Cache struct {
	generation     uint64
	helpIndex      map[string]string
	tableIndex     map[string]TableInfo
	columnsByTable map[string]map[string]ColumnInfo
	allColumns     map[string]ColumnInfo
}

// KeywordOnly returns a cache without schema data, used when no database is
// reachable.
func KeywordOnly(help map[string]string, generation uint64) *Cache {
	c := newCache(generation)
	for k, v := range help {
		c.helpIndex[strings.ToLower(k)] = v
	}
	return c
}

func newCache(generation uint64) *Cache {
	return &Cache{
		generation:     generation,
		helpIndex:      make(map[string]string),
		tableIndex:     make(map[string]TableInfo),
		columnsByTable: make(map[string]map[string]ColumnInfo),
		allColumns:     make(map[string]ColumnInfo),
	}
}

// Generation identifies the build that produced the cache.
func (c *Cache) Generation() uint64 {
	if c == nil {
		return 0
	}
	return c.generation
}

// HasSchema reports whether table metadata was loaded.
func (c *Cache) HasSchema() bool {
	return c != nil && len(c.tableIndex) > 0
}

// Help returns the description for a keyword, or "" when unknown.
func (c *Cache) Help(word string) string {
	if c == nil {
		return ""
	}
	return c.helpIndex[strings.ToLower(word)]
}

// Keywords returns every help key in name order.
func (c *Cache) Keywords() []string {
	if c == nil {
		return nil
	}
	return sortedKeys(c.helpIndex)
}

// Table looks up a table by name.
func (c *Cache) Table(name string) (TableInfo, bool) {
	if c == nil {
		return TableInfo{}, false
	}
	t, ok := c.tableIndex[name]
	return t, ok
}

// Tables returns every table in name order.
func (c *Cache) Tables() []TableInfo {
	if c == nil {
		return nil
	}
	out := make([]TableInfo, 0, len(c.tableIndex))
	for _, name := range sortedKeys(c.tableIndex) {
		out = append(out, c.tableIndex[name])
	}
	return out
}

// TableColumns returns the columns of table in name order, or nil when the
// table is unknown.
func (c *Cache) TableColumns(table string) []ColumnInfo {
	if c == nil {
		return nil
	}
	cols, ok := c.columnsByTable[table]
	if !ok {
		return nil
	}
	return sortedColumns(cols)
}

// Columns returns the schema-wide column index in name order. Each name
// appears once; on collisions across tables the last one loaded wins.
func (c *Cache) Columns() []ColumnInfo {
	if c == nil {
		return nil
	}
	return sortedColumns(c.allColumns)
}

func sortedColumns(m map[string]ColumnInfo) []ColumnInfo {
	out := make([]ColumnInfo, 0, len(m))
	for _, name := range sortedKeys(m) {
		out = append(out, m[name])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
