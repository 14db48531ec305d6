package pipeline

import (
	"fmt"
	"strings"

	"mediasolver/internal/config"
	"mediasolver/internal/services"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerCLI   Trigger = "cli"
	TriggerAPI   Trigger = "api"
	TriggerWatch Trigger = "watch"
)

// Request describes one render run.
type Request struct {
	// Source is the folder scanned for media. Ignored when Files is set.
	Source string
	// Files is an explicit file set, used by the watch folder.
	Files      []string
	Extensions []string
	Recursive  bool

	Preset string

	BinParent      string
	BinPrefix      string
	TimelinePrefix string
	IncludeStills  bool

	// FPS, Width and Height seed the project's timeline settings when it
	// has no timeline yet. Width and Height also override render resolution.
	FPS    float64
	Width  int
	Height int

	OutputDir  string
	CustomName string
	Unique     bool
	SingleClip bool
	Format     string
	Codec      string

	// Project is the project reconciled before the run; empty uses the
	// configured default.
	Project          string
	SkipProjectCheck bool

	Trigger Trigger
}

// NewRequest returns a request seeded with the configured defaults.
func NewRequest(cfg *config.Config) Request {
	if cfg == nil {
		return Request{}
	}
	return Request{
		Extensions:     append([]string(nil), cfg.Ingest.Extensions...),
		Recursive:      cfg.Ingest.Recursive,
		Preset:         cfg.Render.DefaultPreset,
		BinParent:      cfg.Render.BinParent,
		BinPrefix:      cfg.Render.BinPrefix,
		TimelinePrefix: cfg.Render.TimelinePrefix,
		IncludeStills:  cfg.Ingest.IncludeStills,
		OutputDir:      cfg.Render.OutputDir,
		Unique:         cfg.Render.UniqueFilename,
		Project:        cfg.Host.ProjectName,
	}
}

// Validate checks the fields a run cannot start without.
func (r Request) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Source) == "" && len(r.Files) == 0 {
		problems = append(problems, "source folder is required")
	}
	if strings.TrimSpace(r.Preset) == "" {
		problems = append(problems, "render preset is required")
	}
	if len(r.Extensions) == 0 {
		problems = append(problems, "at least one media extension is required")
	}
	if r.FPS < 0 {
		problems = append(problems, "fps must not be negative")
	}
	if r.Width < 0 || r.Height < 0 {
		problems = append(problems, "width and height must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "request", "validate", strings.Join(problems, "; "), nil)
}

// describeSource is the source label used in logs and history.
func (r Request) describeSource() string {
	if len(r.Files) > 0 && strings.TrimSpace(r.Source) == "" {
		return fmt.Sprintf("%d files", len(r.Files))
	}
	return r.Source
}
