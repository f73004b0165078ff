package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/internal/dialect"
	"github.com/woxQAQ/sql-ls/internal/lsp"
	"github.com/woxQAQ/sql-ls/internal/session"
	"github.com/woxQAQ/sql-ls/internal/sqlparse"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type flags struct {
	configPath string
	logLevel   string
	stdio      bool
	tcp        bool
	tcpHost    string
	port       int
	watch      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "sql-ls",
		Short: "SQL language server",
		Long: `sql-ls serves context-aware SQL completions, keyword help and
statement execution to editors over the Language Server Protocol.

Connections come from the server configuration file and from
<workspace>/.sql-ls/config.json, which takes precedence.`,
		Example: `  # Serve an editor over stdio (default)
  sql-ls --config ~/.config/sql-ls/config.yaml

  # Serve over TCP
  sql-ls --tcp --tcp-host 127.0.0.1 --port 2087`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.tcp && cmd.Flags().Changed("stdio") && f.stdio {
				return fmt.Errorf("--stdio and --tcp are mutually exclusive")
			}
			return run(cmd.Context(), cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to configuration file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")
	cmd.Flags().BoolVar(&f.stdio, "stdio", true, "Serve a single client over stdin/stdout")
	cmd.Flags().BoolVar(&f.tcp, "tcp", false, "Serve clients over TCP")
	cmd.Flags().StringVar(&f.tcpHost, "tcp-host", "127.0.0.1", "Host to listen on with --tcp")
	cmd.Flags().IntVar(&f.port, "port", 2087, "Port to listen on with --tcp")
	cmd.Flags().BoolVar(&f.watch, "watch", true, "Reload workspace connections when .sql-ls changes")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, f flags) error {
	cfg, err := config.LoadServerConfig(f.configPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to load configuration: %v\n", err)
		return err
	}

	level := cfg.LogLevel
	if f.logLevel != "" {
		level = f.logLevel
	}
	logger, err := newLogger(level, os.Stderr)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to create logger: %v\n", err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sql-ls",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
		zap.String("parser", cfg.Parser),
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dialects := dialect.LoadRegistry(cfg.DialectPaths, logger)
	logger.Info("Dialect packs loaded", zap.Int("count", dialects.Count()))

	sess := session.New(session.Options{
		Registry: config.NewRegistry(cfg.Connections),
		Keywords: dialects.Keywords,
		Dial:     session.DefaultDialer(cfg.Database, logger),
		// One query timeout for each of the three catalog reads.
		BuildTimeout: 3 * cfg.Database.QueryTimeout,
		Logger:       logger,
	})

	server := lsp.NewServer(lsp.Options{
		Session:        sess,
		Parser:         newParser(cfg.Parser),
		Version:        version,
		WatchWorkspace: f.watch,
		Logger:         logger,
	})
	defer func() {
		if err := server.Close(context.Background()); err != nil {
			logger.Error("Failed to close server", zap.Error(err))
		}
	}()

	if f.tcp {
		if err := server.ServeTCP(ctx, f.tcpHost, f.port); err != nil {
			logger.Error("TCP server error", zap.Error(err))
			return err
		}
	} else if err := server.ServeStdio(ctx); err != nil {
		logger.Error("Stdio server error", zap.Error(err))
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}

func newParser(name string) sqlparse.Parser {
	if name == config.ParserTreeSitter {
		return sqlparse.NewTreeSitterParser()
	}
	return sqlparse.NewNativeParser()
}
