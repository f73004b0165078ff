package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/internal/sqlparse"
)

func TestNewParser(t *testing.T) {
	assert.IsType(t, &sqlparse.NativeParser{}, newParser(config.ParserNative))
	assert.IsType(t, &sqlparse.TreeSitterParser{}, newParser(config.ParserTreeSitter))
	assert.IsType(t, &sqlparse.NativeParser{}, newParser(""))
}

func TestNewLogger(t *testing.T) {
	out, err := os.Create(filepath.Join(t.TempDir(), "log.json"))
	require.NoError(t, err)
	defer out.Close()

	logger, err := newLogger("warn", out)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"kept"`)

	_, err = newLogger("loud", out)
	assert.Error(t, err)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	for name, want := range map[string]string{
		"stdio":    "true",
		"tcp":      "false",
		"tcp-host": "127.0.0.1",
		"port":     "2087",
		"watch":    "true",
	} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, want, flag.DefValue, name)
	}
}

func TestRootCmdRejectsStdioWithTCP(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--stdio", "--tcp"})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestRootCmdInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parser: yacc\n"), 0o644))

	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path})
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	var invalid *config.InvalidValueError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, stderr.String(), "Failed to load configuration")
}
