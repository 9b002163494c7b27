// Package mcpserver exposes the tool registry over the Model Context
// Protocol so agent frameworks can discover and call the Hedera tools.
package mcpserver

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

// Catalog is the registry surface the MCP server needs.
type Catalog interface {
	List() []tools.Summary
	Lookup(name string) (*tools.Definition, bool)
	Invoke(ctx context.Context, name string, input []byte) tools.Result
}

// New registers every tool in catalog on a fresh MCP server.
func New(catalog Catalog, version string) (*mcp.Server, error) {
	if catalog == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "MCP 服务缺少工具注册表")
	}
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "hedera-agent-kit", Version: version}, nil)
	for _, summary := range catalog.List() {
		def, ok := catalog.Lookup(summary.Name)
		if !ok {
			continue
		}
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Schema,
		}, handler(catalog, def.Name))
	}
	return server, nil
}

// handler passes the raw arguments through the registry and returns the
// envelope as text. Error envelopes set IsError; the call itself never fails.
func handler(catalog Catalog, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args []byte
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		if trimmed := bytes.TrimSpace(args); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			args = []byte("{}")
		}
		result := catalog.Invoke(ctx, name, args)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.String()}},
			IsError: !result.OK(),
		}, nil
	}
}

// ServeStdio runs the server on stdin/stdout until ctx is cancelled or the
// client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	log := logger.Named("mcp")
	log.Info("MCP 服务通过 stdio 启动")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error("MCP 服务异常退出", slog.Any("error", err))
		return err
	}
	return nil
}
