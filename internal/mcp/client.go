package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kg-road/roadrag/internal/rag"
	"github.com/kg-road/roadrag/internal/types"
	"github.com/kg-road/roadrag/pkg/version"
)

// Transport selects how the client reaches the tool server.
type Transport string

const (
	// TransportInProcess runs the server inside this process.
	TransportInProcess Transport = "inprocess"
	// TransportStdio spawns the server as a subprocess speaking over stdio.
	TransportStdio Transport = "stdio"
)

// Client is an initialized MCP session.
type Client struct {
	mu     sync.RWMutex
	inner  *mcpclient.Client
	server mcpgo.Implementation
	closed bool
}

// NewInProcessClient connects to srv without leaving the process.
func NewInProcessClient(ctx context.Context, srv *mcpserver.MCPServer) (*Client, error) {
	inner, err := mcpclient.NewInProcessClient(srv)
	if err != nil {
		return nil, types.WrapError(ErrCodeClientInit, "failed to create in-process client", err)
	}
	if err := inner.Start(ctx); err != nil {
		_ = inner.Close()
		return nil, types.WrapError(ErrCodeClientInit, "failed to start in-process client", err)
	}
	return initialize(ctx, inner)
}

// NewStdioClient spawns command with args and env (KEY=VALUE entries added
// to the server's environment) and connects to it over stdio.
func NewStdioClient(ctx context.Context, command string, env []string, args ...string) (*Client, error) {
	if strings.TrimSpace(command) == "" {
		return nil, types.NewError(ErrCodeClientInit, "stdio transport requires a command")
	}
	inner, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, types.WrapError(ErrCodeClientInit, fmt.Sprintf("failed to start %s", command), err)
	}
	return initialize(ctx, inner)
}

func initialize(ctx context.Context, inner *mcpclient.Client) (*Client, error) {
	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{Name: "roadrag", Version: version.Version}

	res, err := inner.Initialize(ctx, req)
	if err != nil {
		_ = inner.Close()
		return nil, types.WrapError(ErrCodeClientInit, "MCP initialize failed", err)
	}
	return &Client{inner: inner, server: res.ServerInfo}, nil
}

// ServerInfo returns the name and version the server announced.
func (c *Client) ServerInfo() (name, ver string) {
	return c.server.Name, c.server.Version
}

// ListTools returns the names of the server's tools.
func (c *Client) ListTools(ctx context.Context) ([]string, error) {
	inner, err := c.session()
	if err != nil {
		return nil, err
	}
	res, err := inner.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, types.WrapRetryableError(ErrCodeTransport, "tools/list failed", err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// CallTool invokes a tool. A tool-reported failure is returned as a
// non-retryable ErrCodeToolError carrying the server's message; transport
// failures are retryable.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (rag.RawResult, error) {
	inner, err := c.session()
	if err != nil {
		return nil, err
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := inner.CallTool(ctx, req)
	if err != nil {
		return nil, types.WrapRetryableError(ErrCodeTransport, fmt.Sprintf("call to %s failed", name), err)
	}

	raw := toRawResult(res.Content)
	if res.IsError {
		return nil, types.NewError(ErrCodeToolError, fmt.Sprintf("%s: %s", name, joinText(raw)))
	}
	return raw, nil
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	inner, err := c.session()
	if err != nil {
		return err
	}
	if err := inner.Ping(ctx); err != nil {
		return types.WrapRetryableError(ErrCodeTransport, "ping failed", err)
	}
	return nil
}

// Close ends the session and, for stdio, stops the subprocess.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.inner.Close()
}

func (c *Client) session() (*mcpclient.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, types.NewError(ErrCodeClientClosed, "MCP client is closed")
	}
	return c.inner, nil
}

func toRawResult(content []mcpgo.Content) rag.RawResult {
	raw := make(rag.RawResult, 0, len(content))
	for _, item := range content {
		switch v := item.(type) {
		case mcpgo.TextContent:
			raw = append(raw, rag.TextBlock(v.Text))
		case *mcpgo.TextContent:
			raw = append(raw, rag.TextBlock(v.Text))
		case mcpgo.ImageContent:
			raw = append(raw, rag.ContentBlock{Type: "image"})
		case mcpgo.EmbeddedResource:
			raw = append(raw, rag.ContentBlock{Type: "resource"})
		default:
			raw = append(raw, rag.ContentBlock{Type: "unknown"})
		}
	}
	return raw
}

func joinText(raw rag.RawResult) string {
	parts := make([]string, 0, len(raw))
	for _, b := range raw {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
