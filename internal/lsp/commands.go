package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/woxQAQ/sql-ls/internal/config"
	"github.com/woxQAQ/sql-ls/internal/statement"
	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

// Commands offered through code actions and workspace/executeCommand.
const (
	CommandExplainQuery          = "explainQuery"
	CommandExecuteQuery          = "executeQuery"
	CommandShowDatabases         = "showDatabases"
	CommandShowConnections       = "showConnections"
	CommandShowConnectionAliases = "showConnectionAliases"
	CommandSwitchConnections     = "switchConnections"
)

var commandNames = []string{
	CommandExplainQuery,
	CommandExecuteQuery,
	CommandShowDatabases,
	CommandShowConnections,
	CommandShowConnectionAliases,
	CommandSwitchConnections,
}

func rawArgs(args ...any) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// handleCodeAction offers every command. Query commands carry the document
// and the requested range; one switch action is offered per alias.
func (c *client) handleCodeAction(raw json.RawMessage) (any, *ResponseError) {
	var params protocol.CodeActionParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}

	target := rawArgs(params.TextDocument, protocol.CodeActionParams{TextDocument: params.TextDocument, Range: params.Range})
	actions := []protocol.CodeAction{
		{Title: "Explain Query", Command: &protocol.Command{Title: "Explain Query", Command: CommandExplainQuery, Arguments: target}},
		{Title: "Execute Query", Command: &protocol.Command{Title: "Execute Query", Command: CommandExecuteQuery, Arguments: target}},
		{Title: "Show Databases", Command: &protocol.Command{Title: "Show Databases", Command: CommandShowDatabases}},
		{Title: "Show Connections", Command: &protocol.Command{Title: "Show Connections", Command: CommandShowConnections}},
	}

	active := c.server.session.Snapshot().Alias
	for _, alias := range c.connections().Aliases() {
		if alias == active {
			continue
		}
		title := "Switch Connection to " + alias
		actions = append(actions, protocol.CodeAction{
			Title:   title,
			Command: &protocol.Command{Title: title, Command: CommandSwitchConnections, Arguments: rawArgs(alias)},
		})
	}
	return actions, nil
}

func (c *client) handleExecuteCommand(ctx context.Context, raw json.RawMessage) (any, *ResponseError) {
	var params protocol.ExecuteCommandParams
	if rpcErr := decode(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	c.logger.Info("Execute command", zap.String("command", params.Command))

	sess := c.server.session
	switch params.Command {
	case CommandExecuteQuery, CommandExplainQuery:
		query, rpcErr := c.queryFromArgs(params.Arguments)
		if rpcErr != nil {
			return nil, rpcErr
		}
		if query != "" && params.Command == CommandExplainQuery {
			query = "EXPLAIN " + query
		}
		return sess.Execute(ctx, query), nil

	case CommandShowDatabases:
		return sess.Databases(ctx), nil

	case CommandShowConnections:
		return sess.Connections(c.connections()), nil

	case CommandShowConnectionAliases:
		return strings.Join(c.connections().Aliases(), "\n"), nil

	case CommandSwitchConnections:
		return c.switchConnection(ctx, params.Arguments)
	}
	return nil, &ResponseError{Code: codeInvalidParams, Message: "unknown command: " + params.Command}
}

// queryFromArgs returns the selected text, or the statement enclosing the
// cursor when the selection is empty.
func (c *client) queryFromArgs(args []json.RawMessage) (string, *ResponseError) {
	if len(args) < 2 {
		return "", &ResponseError{Code: codeInvalidParams, Message: "expected document and range arguments"}
	}
	var ident protocol.TextDocumentIdentifier
	if rpcErr := decode(args[0], &ident); rpcErr != nil {
		return "", rpcErr
	}
	var target protocol.CodeActionParams
	if rpcErr := decode(args[1], &target); rpcErr != nil {
		return "", rpcErr
	}

	doc, ok := c.documents.Get(ident.URI)
	if !ok {
		return "", &ResponseError{Code: codeInvalidParams, Message: "document not open: " + ident.URI}
	}

	if !target.Range.IsEmpty() {
		return strings.TrimSpace(textInRange(doc.Text, target.Range)), nil
	}

	parsed, err := c.server.parser.Parse(doc.Text)
	if err != nil {
		c.logger.Debug("Parse failed, nothing to execute", zap.Error(err))
		return "", nil
	}
	span, ok := statement.Enclosing(parsed, target.Range.Start)
	if !ok {
		return "", nil
	}
	return span.Text(), nil
}

// switchConnection activates the alias given as the first argument. The
// client is told the outcome with window/showMessage.
func (c *client) switchConnection(ctx context.Context, args []json.RawMessage) (any, *ResponseError) {
	var alias string
	if len(args) > 0 {
		if rpcErr := decode(args[0], &alias); rpcErr != nil {
			return nil, rpcErr
		}
	}
	if alias == "" {
		return nil, &ResponseError{Code: codeInvalidParams, Message: "expected a connection alias"}
	}

	err := c.server.session.Connect(ctx, c.connections(), alias)
	var notFound *config.ConnectionNotFoundError
	switch {
	case errors.As(err, &notFound):
		c.showMessage(protocol.MessageTypeError, notFound.Error())
		return nil, &ResponseError{Code: codeInvalidParams, Message: notFound.Error()}
	case err != nil:
		text := fmt.Sprintf("Changed DB Connection to %s, completing keywords only: %v", alias, err)
		c.showMessage(protocol.MessageTypeWarning, text)
		return text, nil
	}

	text := "Changed DB Connection to " + alias
	c.showMessage(protocol.MessageTypeInfo, text)
	return text, nil
}
