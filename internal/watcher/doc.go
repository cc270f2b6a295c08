// Package watcher turns filesystem notifications for a single directory into
// debounced "rescan now" signals.
//
// Notifications carry no per-file information downstream: each burst of raw
// events resets a trailing timer, and only a quiet period publishes one signal
// on a bounded channel. The consumer is expected to re-enumerate the
// directory.
package watcher
