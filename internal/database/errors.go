package database

import "fmt"

// UnsupportedDriverError is returned for a driver name with no registered
// database/sql driver.
type UnsupportedDriverError struct {
	Driver string
}

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("unsupported driver: %q", e.Driver)
}

// ConnectError wraps a failure to open or ping a connection.
type ConnectError struct {
	Alias string
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Alias, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// QueryError wraps a failed statement.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
