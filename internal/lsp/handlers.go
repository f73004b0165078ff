package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/woxQAQ/sql-ls/internal/completion"
	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

const serverName = "sql-ls"

var triggerCharacters = []string{".", " "}

// client is the per-connection state. Each client sees the connections of
// its own workspace layered over the server configuration.
type client struct {
	server    *Server
	stream    *stream
	documents *DocumentStore
	logger    *zap.Logger
	registry  atomic.Pointer[config.Registry]

	root        string
	initialized bool
	shutdown    bool
}

func newClient(s *Server, r io.Reader, w io.Writer) *client {
	c := &client{
		server:    s,
		stream:    newStream(r, w),
		documents: NewDocumentStore(),
		logger:    s.logger.With(zap.String("client", newClientID())),
	}
	c.registry.Store(s.base)
	return c
}

// connections returns the client's connection registry.
func (c *client) connections() *config.Registry {
	return c.registry.Load()
}

// handle dispatches one message and reports whether the client asked to
// exit.
func (c *client) handle(ctx context.Context, msg *Message) bool {
	c.logger.Debug("Received", zap.String("method", msg.Method))

	if msg.Method == "exit" {
		return true
	}
	if msg.Method == "" {
		// A response to a server request; none are sent.
		return false
	}

	switch {
	case !c.initialized && msg.Method != "initialize":
		c.reply(msg, nil, &ResponseError{Code: codeNotInitialized, Message: "server not initialized"})
		return false
	case c.shutdown:
		c.reply(msg, nil, &ResponseError{Code: codeInvalidRequest, Message: "server is shutting down"})
		return false
	}

	result, rpcErr := c.dispatch(ctx, msg)
	c.reply(msg, result, rpcErr)
	return false
}

// reply answers requests; notifications are dropped.
func (c *client) reply(msg *Message, result any, rpcErr *ResponseError) {
	if msg.IsNotification() {
		if rpcErr != nil {
			c.logger.Warn("Notification failed", zap.String("method", msg.Method), zap.Error(rpcErr))
		}
		return
	}
	if err := c.stream.respond(msg.ID, result, rpcErr); err != nil {
		c.logger.Error("Failed to send response", zap.String("method", msg.Method), zap.Error(err))
	}
}

func (c *client) notify(method string, params any) {
	if err := c.stream.notify(method, params); err != nil {
		c.logger.Error("Failed to send notification", zap.String("method", method), zap.Error(err))
	}
}

func (c *client) showMessage(typ protocol.MessageType, text string) {
	c.notify("window/showMessage", &protocol.ShowMessageParams{Type: typ, Message: text})
}

func (c *client) dispatch(ctx context.Context, msg *Message) (any, *ResponseError) {
	switch msg.Method {
	case "initialize":
		return c.handleInitialize(msg.Params)
	case "initialized":
		c.handleInitialized(ctx)
		return nil, nil
	case "shutdown":
		c.shutdown = true
		return nil, nil
	case "textDocument/didOpen":
		return nil, c.handleDidOpen(msg.Params)
	case "textDocument/didChange":
		return nil, c.handleDidChange(msg.Params)
	case "textDocument/didClose":
		return nil, c.handleDidClose(msg.Params)
	case "textDocument/completion":
		return c.handleCompletion(msg.Params)
	case "textDocument/hover":
		return c.handleHover(msg.Params)
	case "textDocument/codeAction":
		return c.handleCodeAction(msg.Params)
	case "workspace/executeCommand":
		return c.handleExecuteCommand(ctx, msg.Params)
	}
	return nil, &ResponseError{Code: codeMethodNotFound, Message: "method not found: " + msg.Method}
}

func decode(raw json.RawMessage, v any) *ResponseError {
	if err := json.Unmarshal(raw, v); err != nil {
		return &ResponseError{Code: codeInvalidParams, Message: err.Error()}
	}
	return nil
}

// --- Lifecycle ---

func (c *client) handleInitialize(raw json.RawMessage) (any, *ResponseError) {
	var params protocol.InitializeParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}

	c.root = uriToPath(params.RootURI)
	if c.root == "" {
		c.root = params.RootPath
	}
	c.initialized = true
	c.logger.Info("Initialize", zap.String("root", c.root))

	if c.root != "" {
		reg, err := config.LoadWorkspaceConfig(c.root)
		if err != nil {
			c.logger.Warn("Ignoring workspace configuration", zap.Error(err))
		} else {
			c.registry.Store(config.Merge(reg, c.server.base))
		}
	}

	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync:   protocol.TextDocumentSyncIncremental,
			CompletionProvider: &protocol.CompletionOptions{TriggerCharacters: triggerCharacters},
			HoverProvider:      true,
			CodeActionProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: commandNames,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName, Version: c.server.version},
	}, nil
}

// handleInitialized connects to the default connection unless one is already
// active, and starts watching the workspace configuration.
func (c *client) handleInitialized(ctx context.Context) {
	sess := c.server.session
	if sess.Snapshot().Alias == "" {
		go func() {
			if err := sess.ConnectDefault(ctx, c.connections()); err != nil {
				c.showMessage(protocol.MessageTypeWarning,
					fmt.Sprintf("Database unavailable, completing keywords only: %v", err))
			}
		}()
	}

	if c.server.watch && c.root != "" {
		w := config.NewWorkspaceWatcher(c.root, c.logger, func(reg *config.Registry) {
			c.registry.Store(config.Merge(reg, c.server.base))
			c.logger.Info("Connections reloaded", zap.Strings("aliases", c.connections().Aliases()))
		})
		go func() {
			if err := w.Run(ctx); err != nil {
				c.logger.Warn("Workspace watcher stopped", zap.Error(err))
			}
		}()
	}
}

// --- Documents ---

func (c *client) handleDidOpen(raw json.RawMessage) *ResponseError {
	var params protocol.DidOpenTextDocumentParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return rpcErr
	}
	c.documents.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	c.logger.Debug("Opened", zap.String("uri", params.TextDocument.URI))
	return nil
}

func (c *client) handleDidChange(raw json.RawMessage) *ResponseError {
	var params protocol.DidChangeTextDocumentParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return rpcErr
	}
	if !c.documents.Apply(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges) {
		c.logger.Debug("Change for unknown document", zap.String("uri", params.TextDocument.URI))
	}
	return nil
}

func (c *client) handleDidClose(raw json.RawMessage) *ResponseError {
	var params protocol.DidCloseTextDocumentParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return rpcErr
	}
	c.documents.Close(params.TextDocument.URI)
	c.logger.Debug("Closed", zap.String("uri", params.TextDocument.URI))
	return nil
}

// --- Language features ---

func (c *client) handleCompletion(raw json.RawMessage) (any, *ResponseError) {
	var params protocol.TextDocumentPositionParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}

	doc, ok := c.documents.Get(params.TextDocument.URI)
	if !ok {
		return protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	cands := c.server.engine.Complete(doc.Text, params.Position, c.server.session.Cache())
	return protocol.CompletionList{Items: completionItems(cands)}, nil
}

var itemKinds = map[completion.CandidateKind]protocol.CompletionItemKind{
	completion.KindColumn:  protocol.CompletionItemKindField,
	completion.KindTable:   protocol.CompletionItemKindClass,
	completion.KindKeyword: protocol.CompletionItemKindKeyword,
}

// completionItems keeps the engine's ranking through SortText, since
// clients sort by it rather than by list order.
func completionItems(cands []completion.Candidate) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(cands))
	for i, cand := range cands {
		items = append(items, protocol.CompletionItem{
			Label:         cand.Label,
			Kind:          itemKinds[cand.Kind],
			Detail:        cand.Detail,
			Documentation: cand.Documentation,
			SortText:      fmt.Sprintf("%02d_%05d", cand.Tier, i),
		})
	}
	return items
}

// handleHover answers with keyword help, or the description of a table.
// Unknown words get a null result.
func (c *client) handleHover(raw json.RawMessage) (any, *ResponseError) {
	var params protocol.TextDocumentPositionParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}

	// An unknown word hovers as empty text.
	hover := &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.MarkupKindPlainText}}

	doc, ok := c.documents.Get(params.TextDocument.URI)
	if !ok {
		return hover, nil
	}
	word := completion.WordAt(doc.Text, params.Position)
	if word == "" {
		return hover, nil
	}

	cache := c.server.session.Cache()
	if help := cache.Help(word); help != "" {
		hover.Contents.Value = help
	} else if table, ok := cache.Table(word); ok {
		hover.Contents = protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("**%s**\n\n```text\n%s\n```", table.Name, table.Description),
		}
	}
	return hover, nil
}
