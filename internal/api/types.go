package api

import (
	"time"

	"mediasolver/internal/history"
	"mediasolver/internal/host"
	"mediasolver/internal/reconcile"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HostStatus reports whether the editing host can be reached.
type HostStatus struct {
	OK          bool               `json:"ok"`
	Hostname    string             `json:"hostname"`
	HostRunning bool               `json:"host_running"`
	Project     string             `json:"project"`
	LastCheck   *reconcile.Outcome `json:"last_check,omitempty"`
	LastCheckAt *time.Time         `json:"last_check_at,omitempty"`
}

// PresetsResponse lists render presets. OK is false with Error set when the
// host is off or refuses; the status code stays 200 so pickers can degrade.
type PresetsResponse struct {
	OK      bool     `json:"ok"`
	Presets []string `json:"presets"`
	Error   string   `json:"error,omitempty"`
}

// StartRequest is the body of POST /api/start.
type StartRequest struct {
	Source           string  `json:"src"`
	OutputDir        string  `json:"outdir"`
	Preset           string  `json:"preset"`
	Recursive        *bool   `json:"recursive,omitempty"`
	BinParent        *string `json:"bin_parent,omitempty"`
	BinPrefix        *string `json:"bin_prefix,omitempty"`
	TimelinePrefix   *string `json:"timeline_prefix,omitempty"`
	IncludeStills    *bool   `json:"include_stills,omitempty"`
	FPS              float64 `json:"fps,omitempty"`
	Width            int     `json:"width,omitempty"`
	Height           int     `json:"height,omitempty"`
	Name             string  `json:"name,omitempty"`
	Unique           *bool   `json:"unique,omitempty"`
	SingleClip       bool    `json:"single_clip,omitempty"`
	Format           string  `json:"format,omitempty"`
	Codec            string  `json:"codec,omitempty"`
	Project          string  `json:"project,omitempty"`
	SkipProjectCheck bool    `json:"skip_project_check,omitempty"`
}

// StartResponse acknowledges an accepted run.
type StartResponse struct {
	OK    bool   `json:"ok"`
	RunID string `json:"run_id"`
}

// EnsureProjectRequest is the optional body of POST /api/ensure-project.
type EnsureProjectRequest struct {
	Project string `json:"project"`
}

// EnsureProjectResponse acknowledges a background bootstrap.
type EnsureProjectResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Project string `json:"project"`
}

// JobStatusResponse carries the untouched host status of the active job.
type JobStatusResponse struct {
	OK    bool           `json:"ok"`
	JobID string         `json:"job_id"`
	Raw   host.RawStatus `json:"raw"`
}

// HistoryResponse lists recent runs, newest first.
type HistoryResponse struct {
	OK   bool          `json:"ok"`
	Runs []history.Run `json:"runs"`
}
