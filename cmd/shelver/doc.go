// Package main hosts the shelver CLI entrypoint and command graph.
//
// The cobra command tree turns terminal invocations into IPC calls against the
// daemon, edits the rules file, and scaffolds configuration. Views that only
// read files on disk (activity, review, rules) keep working when the daemon is
// down.
package main
