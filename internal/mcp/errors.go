package mcp

import "github.com/kg-road/roadrag/internal/types"

const (
	ErrCodeClientInit   types.ErrorCode = "MCP_CLIENT_INIT_FAILED"
	ErrCodeTransport    types.ErrorCode = "MCP_TRANSPORT_FAILED"
	ErrCodeToolError    types.ErrorCode = "MCP_TOOL_ERROR"
	ErrCodeClientClosed types.ErrorCode = "MCP_CLIENT_CLOSED"
	ErrCodeServe        types.ErrorCode = "MCP_SERVE_FAILED"
)
