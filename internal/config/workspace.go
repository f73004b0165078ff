package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Workspace layout: <root>/.sql-ls/config.json holds the connection list and
// an optional <root>/.sql-ls/.env supplies variables referenced as ${VAR}.
const (
	WorkspaceDir  = ".sql-ls"
	WorkspaceFile = "config.json"
	WorkspaceEnv  = ".env"
)

// WorkspaceConfigPath returns the config file location for root.
func WorkspaceConfigPath(root string) string {
	return filepath.Join(root, WorkspaceDir, WorkspaceFile)
}

// LoadWorkspaceConfig reads the connection registry of a workspace. A
// workspace without a config file yields an empty registry.
func LoadWorkspaceConfig(root string) (*Registry, error) {
	path := WorkspaceConfigPath(root)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(nil), nil
	}

	vars, err := readEnvFile(filepath.Join(root, WorkspaceDir, WorkspaceEnv))
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, &WorkspaceConfigError{Path: path, Err: err}
	}

	var conns []Connection
	if err := v.UnmarshalKey("connections", &conns); err != nil {
		return nil, &WorkspaceConfigError{Path: path, Err: err}
	}

	lookup := func(key string) string {
		if val, ok := vars[key]; ok {
			return val
		}
		return os.Getenv(key)
	}
	for i := range conns {
		conns[i].Password = os.Expand(conns[i].Password, lookup)
		conns[i].User = os.Expand(conns[i].User, lookup)
		conns[i].Driver = normalizeDriver(conns[i].Driver)
	}
	return NewRegistry(conns), nil
}

func readEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, &WorkspaceConfigError{Path: path, Err: err}
	}
	return vars, nil
}

// Merge returns a registry listing primary's connections before fallback's.
// On alias clashes primary wins.
func Merge(primary, fallback *Registry) *Registry {
	return NewRegistry(append(primary.All(), fallback.All()...))
}
