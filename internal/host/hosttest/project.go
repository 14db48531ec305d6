package hosttest

import (
	"fmt"
	"strings"

	"mediasolver/internal/host"
)

// Project is a fake open project.
type Project struct {
	host *Host
	name string

	Pool            *MediaPool
	Timelines       []*Timeline
	CurrentTimeline *Timeline
	Settings        map[string]string
	Presets         []string
	LoadedPreset    string
	RenderSettings  host.RenderSettings
	RenderMode      host.RenderMode
	// Statuses are returned by successive status polls; the last repeats.
	Statuses []host.RawStatus

	jobs      []string
	deleted   []string
	nextJob   int
	statusIdx int
}

// NewProject returns a project with an empty media pool and no presets.
func NewProject(name string) *Project {
	p := &Project{
		name:           name,
		Settings:       map[string]string{},
		RenderSettings: host.RenderSettings{},
	}
	p.Pool = newMediaPool(p)
	return p
}

func (p *Project) enter(op string) (bool, error) {
	if p.host == nil {
		return true, nil
	}
	return p.host.enter("Project." + op)
}

func (p *Project) lock() func() {
	if p.host == nil {
		return func() {}
	}
	p.host.mu.Lock()
	return p.host.mu.Unlock
}

// Jobs returns the queued render job ids.
func (p *Project) Jobs() []string {
	defer p.lock()()
	return append([]string(nil), p.jobs...)
}

// DeletedJobs returns the ids passed to DeleteRenderJob.
func (p *Project) DeletedJobs() []string {
	defer p.lock()()
	return append([]string(nil), p.deleted...)
}

func (p *Project) Name() (string, error) {
	if _, err := p.enter("Name"); err != nil {
		return "", err
	}
	return p.name, nil
}

func (p *Project) MediaPool() (host.MediaPool, error) {
	ok, err := p.enter("MediaPool")
	if err != nil || !ok {
		return nil, err
	}
	return p.Pool, nil
}

func (p *Project) TimelineCount() (int, error) {
	if _, err := p.enter("TimelineCount"); err != nil {
		return 0, err
	}
	defer p.lock()()
	return len(p.Timelines), nil
}

func (p *Project) TimelineByIndex(index int) (host.Timeline, error) {
	if _, err := p.enter("TimelineByIndex"); err != nil {
		return nil, err
	}
	defer p.lock()()
	if index < 1 || index > len(p.Timelines) {
		return nil, nil
	}
	return p.Timelines[index-1], nil
}

func (p *Project) SetCurrentTimeline(tl host.Timeline) (bool, error) {
	ok, err := p.enter("SetCurrentTimeline")
	if err != nil || !ok {
		return false, err
	}
	t, isFake := tl.(*Timeline)
	if !isFake {
		return false, fmt.Errorf("foreign timeline %T", tl)
	}
	defer p.lock()()
	p.CurrentTimeline = t
	return true, nil
}

func (p *Project) SetSetting(name, value string) (bool, error) {
	ok, err := p.enter("SetSetting")
	if err != nil || !ok {
		return false, err
	}
	defer p.lock()()
	p.Settings[name] = value
	return true, nil
}

func (p *Project) RenderPresets() ([]string, error) {
	if _, err := p.enter("RenderPresets"); err != nil {
		return nil, err
	}
	defer p.lock()()
	return append([]string(nil), p.Presets...), nil
}

func (p *Project) LoadRenderPreset(name string) (bool, error) {
	ok, err := p.enter("LoadRenderPreset")
	if err != nil || !ok {
		return false, err
	}
	defer p.lock()()
	for _, preset := range p.Presets {
		if preset == name {
			p.LoadedPreset = name
			return true, nil
		}
	}
	return false, nil
}

func (p *Project) SetRenderSettings(settings host.RenderSettings) (bool, error) {
	ok, err := p.enter("SetRenderSettings")
	if err != nil || !ok {
		return false, err
	}
	defer p.lock()()
	for k, v := range settings {
		p.RenderSettings[k] = v
	}
	return true, nil
}

func (p *Project) SetRenderMode(mode host.RenderMode) (bool, error) {
	ok, err := p.enter("SetRenderMode")
	if err != nil || !ok {
		return false, err
	}
	defer p.lock()()
	p.RenderMode = mode
	return true, nil
}

func (p *Project) AddRenderJob() (string, error) {
	ok, err := p.enter("AddRenderJob")
	if err != nil || !ok {
		return "", err
	}
	defer p.lock()()
	p.nextJob++
	id := fmt.Sprintf("job-%d", p.nextJob)
	p.jobs = append(p.jobs, id)
	return id, nil
}

func (p *Project) StartRendering(jobIDs ...string) (bool, error) {
	op := "StartRendering()"
	if len(jobIDs) > 0 {
		op = "StartRendering"
	}
	ok, err := p.enter(op)
	if err != nil || !ok {
		return false, err
	}
	return true, nil
}

func (p *Project) RenderJobStatus(jobID string) (host.RawStatus, error) {
	if _, err := p.enter("RenderJobStatus"); err != nil {
		return nil, err
	}
	defer p.lock()()
	if len(p.Statuses) == 0 {
		return host.RawStatus{}, nil
	}
	idx := p.statusIdx
	if idx >= len(p.Statuses) {
		idx = len(p.Statuses) - 1
	} else {
		p.statusIdx++
	}
	out := host.RawStatus{}
	for k, v := range p.Statuses[idx] {
		out[k] = v
	}
	return out, nil
}

func (p *Project) DeleteRenderJob(jobID string) (bool, error) {
	ok, err := p.enter("DeleteRenderJob")
	if err != nil || !ok {
		return false, err
	}
	defer p.lock()()
	p.deleted = append(p.deleted, jobID)
	kept := p.jobs[:0]
	for _, id := range p.jobs {
		if id != jobID {
			kept = append(kept, id)
		}
	}
	p.jobs = kept
	return true, nil
}

// MediaPool is a fake media pool. Imported clips land in the current folder.
type MediaPool struct {
	project *Project
	Root    *Folder
	Current *Folder
	// StillExtensions marks imported files with these extensions as stills.
	StillExtensions []string
}

func newMediaPool(p *Project) *MediaPool {
	root := &Folder{name: "Master"}
	return &MediaPool{project: p, Root: root, Current: root, StillExtensions: []string{".png", ".jpg", ".tif"}}
}

func (mp *MediaPool) RootFolder() (host.Folder, error) {
	ok, err := mp.project.enter("RootFolder")
	if err != nil || !ok {
		return nil, err
	}
	return mp.Root, nil
}

func (mp *MediaPool) AddSubFolder(parent host.Folder, name string) (host.Folder, error) {
	ok, err := mp.project.enter("AddSubFolder")
	if err != nil || !ok {
		return nil, err
	}
	f, isFake := parent.(*Folder)
	if !isFake {
		return nil, fmt.Errorf("foreign folder %T", parent)
	}
	defer mp.project.lock()()
	child := &Folder{name: name}
	f.subs = append(f.subs, child)
	return child, nil
}

func (mp *MediaPool) SetCurrentFolder(target host.Folder) (bool, error) {
	ok, err := mp.project.enter("SetCurrentFolder")
	if err != nil || !ok {
		return false, err
	}
	f, isFake := target.(*Folder)
	if !isFake {
		return false, fmt.Errorf("foreign folder %T", target)
	}
	defer mp.project.lock()()
	mp.Current = f
	return true, nil
}

func (mp *MediaPool) ImportMedia(paths []string) ([]host.Clip, error) {
	ok, err := mp.project.enter("ImportMedia")
	if err != nil || !ok {
		return nil, err
	}
	defer mp.project.lock()()
	out := make([]host.Clip, 0, len(paths))
	for _, path := range paths {
		c := &Clip{name: baseName(path), props: map[string]string{
			"File Path": path,
			"File Name": baseName(path),
			"Type":      "Video",
		}}
		lower := strings.ToLower(path)
		for _, ext := range mp.StillExtensions {
			if strings.HasSuffix(lower, ext) {
				c.props["Type"] = "Still"
			}
		}
		mp.Current.clips = append(mp.Current.clips, c)
		out = append(out, c)
	}
	return out, nil
}

func (mp *MediaPool) CreateTimelineFromClips(name string, clips []host.Clip) (host.Timeline, error) {
	ok, err := mp.project.enter("CreateTimelineFromClips")
	if err != nil || !ok {
		return nil, err
	}
	return mp.addTimeline(name, clips), nil
}

func (mp *MediaPool) CreateTimelineFromClipInfos(name string, clips []host.Clip) (host.Timeline, error) {
	ok, err := mp.project.enter("CreateTimelineFromClipInfos")
	if err != nil || !ok {
		return nil, err
	}
	return mp.addTimeline(name, clips), nil
}

func (mp *MediaPool) CreateEmptyTimeline(name string) (host.Timeline, error) {
	ok, err := mp.project.enter("CreateEmptyTimeline")
	if err != nil || !ok {
		return nil, err
	}
	return mp.addTimeline(name, nil), nil
}

func (mp *MediaPool) AppendToTimeline(clips []host.Clip) (bool, error) {
	ok, err := mp.project.enter("AppendToTimeline")
	if err != nil || !ok {
		return false, err
	}
	defer mp.project.lock()()
	tl := mp.project.CurrentTimeline
	if tl == nil {
		return false, nil
	}
	for _, c := range clips {
		if fc, isFake := c.(*Clip); isFake {
			tl.Clips = append(tl.Clips, fc)
		}
	}
	return len(clips) > 0, nil
}

func (mp *MediaPool) addTimeline(name string, clips []host.Clip) *Timeline {
	defer mp.project.lock()()
	tl := &Timeline{name: name}
	for _, c := range clips {
		if fc, isFake := c.(*Clip); isFake {
			tl.Clips = append(tl.Clips, fc)
		}
	}
	mp.project.Timelines = append(mp.project.Timelines, tl)
	mp.project.CurrentTimeline = tl
	return tl
}

// Folder is a fake media pool bin.
type Folder struct {
	name  string
	subs  []*Folder
	clips []*Clip
}

// NewFolder returns an empty bin.
func NewFolder(name string) *Folder { return &Folder{name: name} }

// AddChild nests child under f.
func (f *Folder) AddChild(child *Folder) *Folder {
	f.subs = append(f.subs, child)
	return child
}

// Child returns the sub folder named name or nil.
func (f *Folder) Child(name string) *Folder {
	for _, s := range f.subs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// ClipNames lists the clip names held by f.
func (f *Folder) ClipNames() []string {
	names := make([]string, 0, len(f.clips))
	for _, c := range f.clips {
		names = append(names, c.name)
	}
	return names
}

func (f *Folder) Name() (string, error) { return f.name, nil }

func (f *Folder) SubFolders() ([]host.Folder, error) {
	out := make([]host.Folder, 0, len(f.subs))
	for _, s := range f.subs {
		out = append(out, s)
	}
	return out, nil
}

func (f *Folder) Clips() ([]host.Clip, error) {
	out := make([]host.Clip, 0, len(f.clips))
	for _, c := range f.clips {
		out = append(out, c)
	}
	return out, nil
}

// Clip is a fake media pool item.
type Clip struct {
	name  string
	props map[string]string
}

func (c *Clip) Name() (string, error) { return c.name, nil }

func (c *Clip) Properties() (map[string]string, error) {
	out := make(map[string]string, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out, nil
}

// Timeline is a fake timeline.
type Timeline struct {
	name  string
	Clips []*Clip
}

func (t *Timeline) Name() (string, error) { return t.name, nil }

// ClipNames lists the clip names in timeline order.
func (t *Timeline) ClipNames() []string {
	names := make([]string, 0, len(t.Clips))
	for _, c := range t.Clips {
		names = append(names, c.name)
	}
	return names
}
