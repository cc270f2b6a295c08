package activity

import (
	"strings"
	"time"
)

// Action is what happened to a file.
type Action string

const (
	ActionMoved       Action = "moved"
	ActionReviewed    Action = "reviewed"
	ActionDuplicate   Action = "duplicate"
	ActionWhitelisted Action = "whitelisted"
	ActionRetrying    Action = "retrying"
	ActionFailed      Action = "failed"
	ActionAbandoned   Action = "abandoned"
	ActionUndone      Action = "undone"
)

// Status is the severity of an entry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
	StatusInfo    Status = "info"
)

// Entry is one immutable activity record.
type Entry struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Filename        string    `json:"filename"`
	Action          Action    `json:"action"`
	Status          Status    `json:"status"`
	RuleID          string    `json:"rule_id,omitempty"`
	Details         string    `json:"details,omitempty"`
	SourcePath      string    `json:"source_path,omitempty"`
	DestinationPath string    `json:"destination_path,omitempty"`
	// RefID links an undone entry to the entry it reversed.
	RefID string `json:"ref_id,omitempty"`
}

// Undoable reports whether the entry can be reversed by undo.
func (e Entry) Undoable() bool {
	if e.Status != StatusSuccess {
		return false
	}
	if e.Action != ActionMoved && e.Action != ActionReviewed {
		return false
	}
	return strings.TrimSpace(e.SourcePath) != "" && strings.TrimSpace(e.DestinationPath) != ""
}

// Terminal reports whether the entry ends a file's journey through the
// pipeline.
func (e Entry) Terminal() bool {
	switch e.Action {
	case ActionMoved, ActionReviewed, ActionDuplicate, ActionFailed:
		return true
	default:
		return false
	}
}
