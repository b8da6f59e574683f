// Package server implements the MCP (Model Context Protocol) server for iris
// analysis and overlay editing.
//
// This package provides a JSON-RPC 2.0 server that exposes pupil and iris
// detection and the interactive overlay editor through the MCP protocol, so
// an MCP client can analyse an eye image and then correct the detected
// circles step by step.
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
// Analysis:
//   - iris_analyze: Detect pupil and iris, load the result into the editor
//   - iris_health: Check the local engine and the network service
//
// Overlay editor:
//   - overlay_state: Current circles, selection, mode and display size
//   - overlay_select, overlay_mode: Button equivalents, never commit
//   - overlay_resize: Set the display size pointer events are given in
//   - overlay_pointer_down, overlay_pointer_move, overlay_pointer_up,
//     overlay_pointer_leave: Drag a circle; release commits
//   - overlay_set_radius: Numeric radius entry, commits
//   - overlay_reset: Restore the analysed circles, commits
//   - overlay_render: Base64 PNG of the image with the overlay
//   - overlay_commits: Geometries committed since the last analysis
//
// Requests are handled one at a time, which is also what serializes the
// editor's events.
//
// # Image Caching
//
// Images analysed from a path are cached by path and reused, avoiding
// redundant decoding. The cache persists for the lifetime of the server
// process.
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses with:
//   - code: -32602 for bad arguments, -32000 for tool failures
//   - message: Human-readable error description
//   - data: a dispatch.Notice for analysis failures (including the
//     remediation list for images that are not an eye), otherwise the Go
//     error string
//
// # Usage
//
//	srv := server.New(server.Options{Analyzer: processor})
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
