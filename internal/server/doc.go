// Package server implements the MCP (Model Context Protocol) server for the
// lock-on tools.
//
// This package provides a JSON-RPC 2.0 server that exposes target location and
// marking over the MCP protocol, so that an MCP client can inspect frames,
// tune the detection threshold and run batches without the command line.
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
// Frame Information:
//   - frame_info: Dimensions, format, file size and candidate pixel count
//   - frame_intensity_histogram: Near-saturation intensity counts
//
// Target Operations:
//   - frame_locate_target: Target center estimate, or found=false
//   - frame_lock_on_target: Marked frame as PNG, optionally saved as PGM
//
// Batch Operations:
//   - batch_lock_on_target: Lock on to every frame of a directory
//
// # Frame Caching
//
// Frames read by the frame_* tools are cached by path for the lifetime of the
// server. Batch runs always read from disk.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A frame without a target is not an error for frame_locate_target; it is for
// frame_lock_on_target, which has nothing to draw.
package server
