package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Default log level mismatch: got %s, want info", cfg.LogLevel)
	}

	if cfg.Parser != ParserNative {
		t.Errorf("Default parser mismatch: got %s, want %s", cfg.Parser, ParserNative)
	}

	if cfg.Database.QueryTimeout != 30*time.Second {
		t.Errorf("Default query timeout mismatch: got %s, want 30s", cfg.Database.QueryTimeout)
	}

	if cfg.Database.ConnectTimeout != 5*time.Second {
		t.Errorf("Default connect timeout mismatch: got %s, want 5s", cfg.Database.ConnectTimeout)
	}

	if len(cfg.DialectPaths) != 1 || cfg.DialectPaths[0] != "./dialects" {
		t.Errorf("Default dialect paths mismatch: got %v, want [./dialects]", cfg.DialectPaths)
	}

	if len(cfg.Connections) != 0 {
		t.Errorf("Expected no connections by default, got %d", len(cfg.Connections))
	}
}

func TestLoadServerConfigFromFile(t *testing.T) {
	// Create temporary config file
	tmpfile, err := os.CreateTemp("", "config*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	t.Setenv("SQL_LS_TEST_PASSWORD", "s3cret")

	configContent := `
log_level: debug
parser: treesitter
database:
  query_timeout: 10s
connections:
  - alias: local
    driver: MariaDB
    host: 127.0.0.1
    port: 3306
    user: root
    password: ${SQL_LS_TEST_PASSWORD}
    database: shop
  - alias: scratch
    driver: sqlite3
    database: /tmp/scratch.db
`
	if _, err := tmpfile.Write([]byte(configContent)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServerConfig(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Log level mismatch: got %s, want debug", cfg.LogLevel)
	}

	if cfg.Parser != ParserTreeSitter {
		t.Errorf("Parser mismatch: got %s, want %s", cfg.Parser, ParserTreeSitter)
	}

	if cfg.Database.QueryTimeout != 10*time.Second {
		t.Errorf("Query timeout mismatch: got %s, want 10s", cfg.Database.QueryTimeout)
	}

	if len(cfg.Connections) != 2 {
		t.Fatalf("Expected 2 connections, got %d", len(cfg.Connections))
	}

	local := cfg.Connections[0]
	if local.Driver != DriverMySQL {
		t.Errorf("Driver mismatch: got %s, want %s", local.Driver, DriverMySQL)
	}
	if local.Password != "s3cret" {
		t.Errorf("Password was not expanded: got %q", local.Password)
	}
	if local.Port != 3306 {
		t.Errorf("Port mismatch: got %d, want 3306", local.Port)
	}
	if cfg.Connections[1].Driver != DriverSQLite {
		t.Errorf("Driver mismatch: got %s, want %s", cfg.Connections[1].Driver, DriverSQLite)
	}
}

func TestLoadServerConfigRejectsUnknownParser(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte("parser: yacc\n")); err != nil {
		t.Fatal(err)
	}
	tmpfile.Close()

	_, err = LoadServerConfig(tmpfile.Name())
	var invalid *InvalidValueError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidValueError, got %v", err)
	}
	if invalid.Key != "parser" {
		t.Errorf("Key mismatch: got %s, want parser", invalid.Key)
	}
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	if _, err := LoadServerConfig("/nonexistent/sql-ls.yaml"); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}
