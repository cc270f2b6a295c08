// Package workflow runs the file pipeline.
//
// The Manager owns every pipeline component and the three triggers that feed
// it: debounced watcher signals, a periodic rescan, and the retry scheduler's
// tick loop. Each ready file is extracted, classified, relocated and recorded
// in the activity log. A path is processed by at most one goroutine at a time
// and each (path, modification time) pair reaches at most one terminal
// outcome.
//
// Files classified by the keyword fallback while the primary classifier was
// unavailable are replayed once when it becomes ready.
package workflow
