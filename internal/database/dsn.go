package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/woxQAQ/sql-ls/internal/config"
)

// database/sql driver names registered by the imported drivers.
const (
	driverNameMySQL    = "mysql"
	driverNamePostgres = "pgx"
	driverNameSQLite   = "sqlite"
)

// DSN returns the database/sql driver name and data source name for conn.
func DSN(conn config.Connection) (string, string, error) {
	switch conn.Driver {
	case config.DriverMySQL:
		return driverNameMySQL, mysqlDSN(conn), nil
	case config.DriverPostgres:
		return driverNamePostgres, postgresDSN(conn), nil
	case config.DriverSQLite:
		return driverNameSQLite, conn.Database, nil
	}
	return "", "", &UnsupportedDriverError{Driver: conn.Driver}
}

func hostPort(conn config.Connection, defaultPort int) string {
	host := conn.Host
	if host == "" {
		host = "localhost"
	}
	port := conn.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func mysqlDSN(conn config.Connection) string {
	cfg := mysql.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = hostPort(conn, 3306)
	cfg.DBName = conn.Database
	return cfg.FormatDSN()
}

func postgresDSN(conn config.Connection) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     hostPort(conn, 5432),
		Path:     "/" + conn.Database,
		RawQuery: "sslmode=disable",
	}
	if conn.User != "" {
		if conn.Password != "" {
			u.User = url.UserPassword(conn.User, conn.Password)
		} else {
			u.User = url.User(conn.User)
		}
	}
	return u.String()
}
