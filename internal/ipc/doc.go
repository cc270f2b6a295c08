// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The server owns the socket file; the request and response types in
// types.go are the wire protocol. Add new methods there so the CLI and the
// daemon stay in step.
package ipc
