package config

import (
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	DialectPaths []string       `mapstructure:"dialect_paths"`
	LogLevel     string         `mapstructure:"log_level"`
	Parser       string         `mapstructure:"parser"`
	Database     DatabaseConfig `mapstructure:"database"`
	Connections  []Connection   `mapstructure:"connections"`
}

// DatabaseConfig holds settings shared by every connection.
type DatabaseConfig struct {
	// Timeout for opening and pinging a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// Timeout for a single query, including catalog reads.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// Maximum rows rendered for one result.
	MaxRows int `mapstructure:"max_rows"`
}

// Parser backends.
const (
	ParserNative     = "native"
	ParserTreeSitter = "treesitter"
)

func LoadServerConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("dialect_paths", []string{"./dialects"})
	v.SetDefault("log_level", "info")
	v.SetDefault("parser", ParserNative)

	// Database defaults
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.query_timeout", 30*time.Second)
	v.SetDefault("database.max_rows", 1000)

	v.SetEnvPrefix("SQL_LS")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validateParser(cfg.Parser); err != nil {
		return nil, err
	}
	cfg.Connections = expandConnections(cfg.Connections)

	return &cfg, nil
}

func validateParser(name string) error {
	switch name {
	case ParserNative, ParserTreeSitter:
		return nil
	}
	return &InvalidValueError{Key: "parser", Value: name}
}
