// Package server implements the WebSocket relay: every message received on
// any connection is rebroadcast to the open connections.
//
// The implementation is organized into specialized files: the Hub and its
// registry of connections, per-connection clients with their receive loop and
// write pump, origin and rate-limit policies, HTTP routing and handlers, and
// server lifecycle helpers.
package server
