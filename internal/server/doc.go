// Package server implements the MCP (Model Context Protocol) server for the
// card recogniser.
//
// This package provides a JSON-RPC 2.0 server that exposes the recognition
// pipeline stage by stage, so a client can inspect why a snapshot was or was
// not recognised.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Recognition:
//   - card_detect: Full pipeline, returns the card, confidence and corners
//   - card_catalog: List known cards
//
// Pipeline stages:
//   - card_extract: Outline candidates, best first
//   - card_rectify: Upright card image
//   - card_classify: Colour vote on the rectified card
//
// Tuning:
//   - card_sample_color: Pixel colour in palette terms
//   - card_annotate: Snapshot with the detection drawn on it
//
// # Image Caching
//
// Images are cached by path and reused across tool calls for the lifetime of
// the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000, message "Tool execution failed" and the Go error string as data.
package server
