package ipc

import (
	"shelver/internal/activity"
	"shelver/internal/daemon"
	"shelver/internal/retry"
	"shelver/internal/workflow"
)

// ServiceName is the JSON-RPC receiver name.
const ServiceName = "Shelver"

// StartRequest turns folder monitoring on.
type StartRequest struct{}

// StartResponse indicates whether monitoring was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest turns folder monitoring off.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries daemon and workflow status.
type StatusResponse struct {
	Status daemon.Status `json:"status"`
}

// RescanRequest triggers an immediate scan of the watch directory.
type RescanRequest struct{}

// RescanResponse reports how many files reached a terminal outcome.
type RescanResponse struct {
	Processed int `json:"processed"`
}

// UndoRequest reverses the latest undoable activity entry.
type UndoRequest struct{}

// UndoResponse reports the undo outcome.
type UndoResponse struct {
	Result activity.UndoResult `json:"result"`
}

// ActivityRequest lists activity entries, newest first.
type ActivityRequest struct {
	Limit int `json:"limit"`
}

// ActivityResponse contains activity entries.
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
}

// PendingRequest lists files waiting in the retry scheduler.
type PendingRequest struct{}

// PendingResponse contains deferred files.
type PendingResponse struct {
	Files []retry.PendingFile `json:"files"`
}

// ReviewRequest lists the review area.
type ReviewRequest struct{}

// ReviewResponse contains the review directory and its files.
type ReviewResponse struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// ReprocessRequest feeds one file back through the pipeline.
type ReprocessRequest struct {
	Path string `json:"path"`
}

// ReprocessResponse reports what happened to the file.
type ReprocessResponse struct {
	Result workflow.FileResult `json:"result"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
