package bridge

import (
	"fmt"

	"mediasolver/internal/host"
)

type projectManager struct{ object }

func (pm *projectManager) CurrentProject() (host.Project, error) {
	ref, ok, err := pm.callRef(opGetCurrentProject)
	if err != nil || !ok {
		return nil, err
	}
	return pm.project(ref), nil
}

func (pm *projectManager) ProjectsInCurrentFolder() ([]string, error) {
	return pm.callStrings(opGetProjectListInCurrentFolder)
}

func (pm *projectManager) FoldersInCurrentFolder() ([]string, error) {
	return pm.callStrings(opGetFolderListInCurrentFolder)
}

func (pm *projectManager) GotoRootFolder() (bool, error) {
	return pm.callBool(opGotoRootFolder)
}

func (pm *projectManager) OpenFolder(name string) (bool, error) {
	return pm.callBool(opOpenFolder, name)
}

func (pm *projectManager) SaveProject() (bool, error) {
	return pm.callBool(opSaveProject)
}

func (pm *projectManager) CloseProject(p host.Project) (bool, error) {
	if p == nil {
		return pm.callBool(opCloseProject)
	}
	proj, ok := p.(*project)
	if !ok {
		return false, fmt.Errorf("close project: foreign project handle %T", p)
	}
	return pm.callBool(opCloseProject, Ref{ID: proj.ref})
}

func (pm *projectManager) CreateProject(name string) (host.Project, error) {
	ref, ok, err := pm.callRef(opCreateProject, name)
	if err != nil || !ok {
		return nil, err
	}
	return pm.project(ref), nil
}

func (pm *projectManager) LoadProject(name string) (host.Project, error) {
	ref, ok, err := pm.callRef(opLoadProject, name)
	if err != nil || !ok {
		return nil, err
	}
	return pm.project(ref), nil
}

func (pm *projectManager) project(ref string) *project {
	return &project{object{s: pm.s, ref: ref}}
}

type project struct{ object }

func (p *project) Name() (string, error) {
	return p.callString(opGetName)
}

func (p *project) MediaPool() (host.MediaPool, error) {
	ref, ok, err := p.callRef(opGetMediaPool)
	if err != nil || !ok {
		return nil, err
	}
	return &mediaPool{object{s: p.s, ref: ref}}, nil
}

func (p *project) TimelineCount() (int, error) {
	raw, err := p.call(opGetTimelineCount)
	if err != nil {
		return 0, err
	}
	return decodeInt(raw)
}

func (p *project) TimelineByIndex(index int) (host.Timeline, error) {
	ref, ok, err := p.callRef(opGetTimelineByIndex, index)
	if err != nil || !ok {
		return nil, err
	}
	return &timeline{object{s: p.s, ref: ref}}, nil
}

func (p *project) SetCurrentTimeline(tl host.Timeline) (bool, error) {
	t, ok := tl.(*timeline)
	if !ok {
		return false, fmt.Errorf("set current timeline: foreign timeline handle %T", tl)
	}
	return p.callBool(opSetCurrentTimeline, Ref{ID: t.ref})
}

func (p *project) SetSetting(name, value string) (bool, error) {
	return p.callBool(opSetSetting, name, value)
}

func (p *project) RenderPresets() ([]string, error) {
	return p.callStrings(opGetRenderPresetList)
}

func (p *project) LoadRenderPreset(name string) (bool, error) {
	return p.callBool(opLoadRenderPreset, name)
}

func (p *project) SetRenderSettings(settings host.RenderSettings) (bool, error) {
	return p.callBool(opSetRenderSettings, map[string]any(settings))
}

func (p *project) SetRenderMode(mode host.RenderMode) (bool, error) {
	return p.callBool(opSetCurrentRenderMode, int(mode))
}

func (p *project) AddRenderJob() (string, error) {
	return p.callString(opAddRenderJob)
}

func (p *project) StartRendering(jobIDs ...string) (bool, error) {
	if len(jobIDs) == 0 {
		return p.callBool(opStartRendering)
	}
	return p.callBool(opStartRendering, jobIDs)
}

func (p *project) RenderJobStatus(jobID string) (host.RawStatus, error) {
	raw, err := p.call(opGetRenderJobStatus, jobID)
	if err != nil {
		return nil, err
	}
	m, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	return host.RawStatus(m), nil
}

func (p *project) DeleteRenderJob(jobID string) (bool, error) {
	return p.callBool(opDeleteRenderJob, jobID)
}

type mediaPool struct{ object }

func (mp *mediaPool) RootFolder() (host.Folder, error) {
	ref, ok, err := mp.callRef(opGetRootFolder)
	if err != nil || !ok {
		return nil, err
	}
	return mp.folder(ref), nil
}

func (mp *mediaPool) AddSubFolder(parent host.Folder, name string) (host.Folder, error) {
	f, ok := parent.(*folder)
	if !ok {
		return nil, fmt.Errorf("add sub folder: foreign folder handle %T", parent)
	}
	ref, ok, err := mp.callRef(opAddSubFolder, Ref{ID: f.ref}, name)
	if err != nil || !ok {
		return nil, err
	}
	return mp.folder(ref), nil
}

func (mp *mediaPool) SetCurrentFolder(target host.Folder) (bool, error) {
	f, ok := target.(*folder)
	if !ok {
		return false, fmt.Errorf("set current folder: foreign folder handle %T", target)
	}
	return mp.callBool(opSetCurrentFolder, Ref{ID: f.ref})
}

func (mp *mediaPool) ImportMedia(paths []string) ([]host.Clip, error) {
	refs, err := mp.callRefs(opImportMedia, paths)
	if err != nil {
		return nil, err
	}
	return clipsFromRefs(mp.s, refs), nil
}

func (mp *mediaPool) CreateTimelineFromClips(name string, clips []host.Clip) (host.Timeline, error) {
	refs, err := clipRefs(clips)
	if err != nil {
		return nil, err
	}
	return mp.timelineFrom(opCreateTimelineFromClips, name, refs)
}

func (mp *mediaPool) CreateTimelineFromClipInfos(name string, clips []host.Clip) (host.Timeline, error) {
	refs, err := clipRefs(clips)
	if err != nil {
		return nil, err
	}
	infos := make([]clipInfo, 0, len(refs))
	for _, r := range refs {
		infos = append(infos, clipInfo{MediaPoolItem: r})
	}
	return mp.timelineFrom(opCreateTimelineFromClipInfos, name, infos)
}

func (mp *mediaPool) CreateEmptyTimeline(name string) (host.Timeline, error) {
	ref, ok, err := mp.callRef(opCreateEmptyTimeline, name)
	if err != nil || !ok {
		return nil, err
	}
	return &timeline{object{s: mp.s, ref: ref}}, nil
}

func (mp *mediaPool) AppendToTimeline(clips []host.Clip) (bool, error) {
	refs, err := clipRefs(clips)
	if err != nil {
		return false, err
	}
	return mp.callBool(opAppendToTimeline, refs)
}

func (mp *mediaPool) timelineFrom(operation op, name string, items any) (host.Timeline, error) {
	ref, ok, err := mp.callRef(operation, name, items)
	if err != nil || !ok {
		return nil, err
	}
	return &timeline{object{s: mp.s, ref: ref}}, nil
}

func (mp *mediaPool) folder(ref string) *folder {
	return &folder{object{s: mp.s, ref: ref}}
}

type folder struct{ object }

func (f *folder) Name() (string, error) {
	return f.callString(opGetName)
}

func (f *folder) SubFolders() ([]host.Folder, error) {
	refs, err := f.callRefs(opGetSubFolderList)
	if err != nil {
		return nil, err
	}
	out := make([]host.Folder, 0, len(refs))
	for _, ref := range refs {
		out = append(out, &folder{object{s: f.s, ref: ref}})
	}
	return out, nil
}

func (f *folder) Clips() ([]host.Clip, error) {
	refs, err := f.callRefs(opGetClipList)
	if err != nil {
		return nil, err
	}
	return clipsFromRefs(f.s, refs), nil
}

type clip struct{ object }

func (c *clip) Name() (string, error) {
	return c.callString(opGetName)
}

func (c *clip) Properties() (map[string]string, error) {
	raw, err := c.call(opGetClipProperty)
	if err != nil {
		return nil, err
	}
	m, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		props[k] = fmt.Sprint(v)
	}
	return props, nil
}

type timeline struct{ object }

func (t *timeline) Name() (string, error) {
	return t.callString(opGetName)
}

func clipsFromRefs(s *Session, refs []string) []host.Clip {
	out := make([]host.Clip, 0, len(refs))
	for _, ref := range refs {
		out = append(out, &clip{object{s: s, ref: ref}})
	}
	return out
}

func clipRefs(clips []host.Clip) ([]Ref, error) {
	refs := make([]Ref, 0, len(clips))
	for _, c := range clips {
		cl, ok := c.(*clip)
		if !ok {
			return nil, fmt.Errorf("foreign clip handle %T", c)
		}
		refs = append(refs, Ref{ID: cl.ref})
	}
	return refs, nil
}
