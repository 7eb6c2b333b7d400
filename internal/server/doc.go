// Package server implements the MCP (Model Context Protocol) server for the
// region detection tools.
//
// This package provides a JSON-RPC 2.0 server that exposes region detection
// through the MCP protocol. A client classifies an image, gets back the
// connected regions of equal class with their shape descriptors, and then
// queries, filters, measures or renders those regions by frame ID.
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
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_dominant_colors: Extract color palette
//
// Detection:
//   - regions_detect: Classify an image and find its regions
//
// Frame Queries:
//   - regions_filter: Regions matching property ranges
//   - region_at: Region under a pixel
//   - region_graph: Neighbours and containment of a region
//
// Output and Measurement:
//   - regions_render: PNG overlay of the regions
//   - regions_measure: Distance between two regions
//   - regions_align: Row/column alignment of regions
//
// # Frames
//
// Every regions_detect call stores its result, together with the cropped
// and scaled image it ran on, under a new frame ID. Only the most recent
// frames are kept (32 by default); queries on an expired frame fail and the
// client has to detect again. Region coordinates are relative to the
// detected image, not to the file.
//
// All detection runs on one shared detector whose record pools are reused
// between calls. Calls are serialised on it.
//
// # Image Caching
//
// Loaded images are cached by path in a bounded cache, so repeated detection
// on one file with different settings does not read it again.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.WithLogger(log))
//	if err := srv.Run(); err != nil {
//	    log.Fatal().Err(err).Msg("server failed")
//	}
package server
