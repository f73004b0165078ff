// Package lsp serves completions, hover help and query commands to editors
// over JSON-RPC, on stdio or TCP.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/woxQAQ/sql-ls/internal/completion"
	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/internal/session"
	"github.com/woxQAQ/sql-ls/internal/sqlparse"
)

// Options configures a Server.
type Options struct {
	Session *session.Session
	Parser  sqlparse.Parser
	// Version is reported to clients in the initialize result.
	Version string
	// WatchWorkspace enables reloading <root>/.sql-ls on change.
	WatchWorkspace bool
	Logger         *zap.Logger
}

type Server struct {
	session *session.Session
	parser  sqlparse.Parser
	engine  *completion.Engine
	base    *config.Registry
	version string
	watch   bool
	logger  *zap.Logger
}

// NewServer creates a server. Connections from the server configuration are
// kept as the fallback for every workspace registry.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := opts.Parser
	if parser == nil {
		parser = sqlparse.NewNativeParser()
	}
	return &Server{
		session: opts.Session,
		parser:  parser,
		engine:  completion.NewEngine(parser, logger),
		base:    opts.Session.Registry(),
		version: opts.Version,
		watch:   opts.WatchWorkspace,
		logger:  logger.With(zap.String("component", "lsp")),
	}
}

// Close gracefully shuts down the server.
func (s *Server) Close(_ context.Context) error {
	s.logger.Info("Shutting down LSP server")

	if err := s.session.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	s.logger.Info("LSP server shutdown complete")
	return nil
}

// ServeStdio serves a single client on stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// ServeTCP accepts clients on host:port until ctx is cancelled. Each client
// gets its own document store and workspace connections; the active
// connection is shared.
func (s *Server) ServeTCP(ctx context.Context, host string, port int) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("Listening", zap.String("addr", ln.Addr().String()))
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-egctx.Done()
		return ln.Close()
	})

	eg.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if egctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			eg.Go(func() error {
				go func() {
					<-egctx.Done()
					_ = conn.Close()
				}()
				defer conn.Close()
				if err := s.Serve(egctx, conn, conn); err != nil {
					s.logger.Warn("Client connection failed",
						zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
				}
				return nil
			})
		}
	})

	return eg.Wait()
}

// Serve runs one client session until the client exits, disconnects or ctx
// is cancelled. Requests are handled one at a time.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newClient(s, r, w)
	c.logger.Info("Client connected")

	msgs := make(chan *Message)
	readErr := make(chan error, 1)
	go func() {
		for {
			msg, err := c.stream.read()
			if err != nil {
				var rpcErr *ResponseError
				if errors.As(err, &rpcErr) {
					c.logger.Warn("Malformed message", zap.Error(err))
					_ = c.stream.respond(nil, nil, rpcErr)
					continue
				}
				readErr <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Client session cancelled")
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.logger.Info("Client disconnected")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		case msg := <-msgs:
			if c.handle(ctx, msg) {
				c.logger.Info("Client exited")
				return nil
			}
		}
	}
}

// uriToPath converts a file URI to a local path. Anything else is returned
// unchanged.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return u.Path
}

func newClientID() string {
	return uuid.NewString()
}
