// Package daemon coordinates the long-running shelver process.
//
// A Daemon holds the flock that keeps a single instance per state directory,
// starts and stops folder monitoring on request, and answers the read-only
// views (status, activity, pending, review) used by the IPC server and the
// optional HTTP API. Pipeline behaviour lives in the workflow package; the
// daemon only sequences it.
package daemon
