package config

import (
	"os"
	"strings"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connection describes one database the server can connect to.
type Connection struct {
	Alias    string `mapstructure:"alias" json:"alias"`
	Driver   string `mapstructure:"driver" json:"driver"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	// Database is the schema name, or the file path for sqlite.
	Database string `mapstructure:"database" json:"database"`
}

// Masked returns a copy safe for display.
func (c Connection) Masked() Connection {
	if c.Password != "" {
		c.Password = "******"
	}
	return c
}

// Registry is the ordered set of configured connections. The first entry is
// the default.
type Registry struct {
	conns []Connection
}

// NewRegistry builds a registry. Later entries with a duplicate alias are
// dropped.
func NewRegistry(conns []Connection) *Registry {
	seen := make(map[string]bool, len(conns))
	r := &Registry{}
	for _, c := range conns {
		if c.Alias == "" || seen[c.Alias] {
			continue
		}
		seen[c.Alias] = true
		r.conns = append(r.conns, c)
	}
	return r
}

// Default returns the first connection.
func (r *Registry) Default() (Connection, bool) {
	if r == nil || len(r.conns) == 0 {
		return Connection{}, false
	}
	return r.conns[0], true
}

// Lookup returns the connection registered under alias.
func (r *Registry) Lookup(alias string) (Connection, error) {
	if r != nil {
		for _, c := range r.conns {
			if c.Alias == alias {
				return c, nil
			}
		}
	}
	return Connection{}, &ConnectionNotFoundError{Alias: alias}
}

// Aliases returns the registered aliases in order.
func (r *Registry) Aliases() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c.Alias)
	}
	return out
}

// All returns a copy of the connections in order.
func (r *Registry) All() []Connection {
	if r == nil {
		return nil
	}
	return append([]Connection(nil), r.conns...)
}

// expandConnections substitutes ${VAR} references in credentials and
// normalizes driver names.
func expandConnections(conns []Connection) []Connection {
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		c.Password = os.ExpandEnv(c.Password)
		c.User = os.ExpandEnv(c.User)
		c.Driver = normalizeDriver(c.Driver)
		out = append(out, c)
	}
	return out
}

func normalizeDriver(d string) string {
	switch strings.ToLower(d) {
	case "mysql", "mariadb":
		return DriverMySQL
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	}
	return strings.ToLower(d)
}
