// Package activity keeps the append-only outcome log and implements undo.
//
// Every terminal outcome for a file produces one immutable Entry. Entries are
// persisted through a Store: a JSON file rewritten atomically on each append,
// or a SQLite table. Both trim to a configured maximum. The Recorder adds
// single-step undo on top: it reverses the newest undoable move and appends
// an "undone" entry pointing at it instead of editing history.
package activity
