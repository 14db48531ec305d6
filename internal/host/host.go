package host

import (
	"context"
	"errors"
)

var (
	// ErrEngineUnavailable reports that the host application is not running
	// or its scripting engine cannot be reached.
	ErrEngineUnavailable = errors.New("host scripting engine unavailable")
	// ErrNoMethod reports that the selected API generation lacks an operation.
	ErrNoMethod = errors.New("operation not supported by host")
)

// RawStatus is the loosely structured render job status reported by the
// host. Field names and encodings vary by host version; only the
// renderstatus package interprets it.
type RawStatus map[string]any

// RenderSettings is the key/value render configuration accepted by the host
// (TargetDir, CustomName, UniqueFilename, Format, VideoCodec, ...).
type RenderSettings map[string]any

// RenderMode selects how the render queue splits a timeline into outputs.
type RenderMode int

const (
	RenderModeIndividualClips RenderMode = 0
	RenderModeSingleClip      RenderMode = 1
)

// Dialer opens scripting sessions against the host.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// CloseLate closes a session a bounded dial produced after its caller had
// already given up on it.
func CloseLate(s Session) {
	if s != nil {
		_ = s.Close()
	}
}

// Session is one connection to the host's scripting runtime.
type Session interface {
	// ProjectManager returns nil without error when the host has no project
	// manager available (for example while it is still starting).
	ProjectManager() (ProjectManager, error)
	Close() error
}

// ProjectManager navigates the project library. The host keeps a "current
// folder" cursor that the folder operations move.
type ProjectManager interface {
	// CurrentProject returns nil without error when no project is open.
	CurrentProject() (Project, error)
	ProjectsInCurrentFolder() ([]string, error)
	FoldersInCurrentFolder() ([]string, error)
	GotoRootFolder() (bool, error)
	OpenFolder(name string) (bool, error)
	SaveProject() (bool, error)
	// CloseProject closes p; a nil p uses the argument-less form older hosts accept.
	CloseProject(p Project) (bool, error)
	CreateProject(name string) (Project, error)
	LoadProject(name string) (Project, error)
}

// Project is an open project.
type Project interface {
	Name() (string, error)
	MediaPool() (MediaPool, error)
	TimelineCount() (int, error)
	// TimelineByIndex is 1-based, matching the host.
	TimelineByIndex(index int) (Timeline, error)
	SetCurrentTimeline(tl Timeline) (bool, error)
	SetSetting(name, value string) (bool, error)
	RenderPresets() ([]string, error)
	LoadRenderPreset(name string) (bool, error)
	SetRenderSettings(settings RenderSettings) (bool, error)
	SetRenderMode(mode RenderMode) (bool, error)
	// AddRenderJob returns an empty id when the host refused the job.
	AddRenderJob() (string, error)
	// StartRendering with no ids starts every queued job.
	StartRendering(jobIDs ...string) (bool, error)
	RenderJobStatus(jobID string) (RawStatus, error)
	DeleteRenderJob(jobID string) (bool, error)
}

// MediaPool manages bins and imported media of a project.
type MediaPool interface {
	RootFolder() (Folder, error)
	AddSubFolder(parent Folder, name string) (Folder, error)
	SetCurrentFolder(f Folder) (bool, error)
	ImportMedia(paths []string) ([]Clip, error)
	CreateTimelineFromClips(name string, clips []Clip) (Timeline, error)
	// CreateTimelineFromClipInfos is the lower-level creation call taking
	// per-clip info records instead of bare clips.
	CreateTimelineFromClipInfos(name string, clips []Clip) (Timeline, error)
	CreateEmptyTimeline(name string) (Timeline, error)
	// AppendToTimeline appends to the current timeline.
	AppendToTimeline(clips []Clip) (bool, error)
}

// Folder is a bin in the media pool.
type Folder interface {
	Name() (string, error)
	SubFolders() ([]Folder, error)
	Clips() ([]Clip, error)
}

// Clip is a media pool item.
type Clip interface {
	Name() (string, error)
	Properties() (map[string]string, error)
}

// Timeline is an assembled sequence of clips.
type Timeline interface {
	Name() (string, error)
}
