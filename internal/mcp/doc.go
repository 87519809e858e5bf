// Package mcp implements the Model Context Protocol over JSON-RPC 2.0.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This
// package provides the protocol core shared by every transport: a Dispatcher
// that routes JSON-RPC requests to a tool backend, a line-delimited stdio
// server, and a stdio-to-HTTP proxy for clients that cannot speak HTTP
// themselves.
//
// # Protocol
//
// Requests and responses follow JSON-RPC 2.0. Supported methods:
//
//   - initialize / notifications/initialized - lifecycle handshake
//   - tools/list - tool discovery with JSON Schema input definitions
//   - tools/call - tool execution, results wrapped in content blocks
//   - resources/list / resources/read - tracked files exposed as file:// URIs
//
// Tool failures (missing file, bad arguments) are reported inside the result
// envelope with isError set; protocol failures use JSON-RPC error objects.
//
// # Transports
//
// The same Dispatcher backs all transports. The stdio server reads one
// request per line and accepts batch arrays; the HTTP endpoint in
// internal/server answers single requests; the Proxy forwards stdin lines to
// a running HTTP server and relays responses.
//
// # Usage
//
// Serve MCP on stdin/stdout:
//
//	dispatcher := mcp.NewDispatcher(backend, mcp.Options{AllowBatch: true})
//	srv := mcp.NewStdioServer(dispatcher, os.Stdin, os.Stdout)
//	err := srv.Run(ctx)
//
// Bridge a stdio client to a running server:
//
//	proxy := mcp.NewProxy(port, os.Stdin, os.Stdout)
//	err := proxy.Run(ctx)
package mcp
