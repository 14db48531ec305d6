package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"mediasolver/internal/host"
	"mediasolver/internal/hostcall"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/media"
	"mediasolver/internal/services"
	"mediasolver/internal/textutil"
)

const binTimeFormat = "20060102_150405"

func (r *run) enumerate() error {
	opts := media.Options{Extensions: r.req.Extensions, Recursive: r.req.Recursive}
	var (
		files []string
		err   error
	)
	if len(r.req.Files) > 0 {
		files, err = media.Filter(r.req.Files, opts)
	} else {
		files, err = media.List(r.req.Source, opts)
	}
	if err != nil {
		return err
	}
	r.result.Files = files
	r.logger.Info("source media found",
		logging.Int("file_count", len(files)),
		logging.String("source", r.req.describeSource()),
	)
	r.progress(percentListed, fmt.Sprintf("Importing %d files", len(files)))
	return nil
}

// binPath splits the configured parent on either separator and appends the bin.
func binPath(parent, bin string) []string {
	parts := strings.FieldsFunc(parent, func(c rune) bool { return c == '/' || c == '\\' })
	out := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return append(out, bin)
}

func (r *run) createBin() error {
	pool, err := call(r, "MediaPool", r.project.MediaPool)
	if err == nil && pool == nil {
		err = fmt.Errorf("project returned no media pool")
	}
	if err != nil {
		return hostError("bin", "MediaPool", "media pool unavailable", err)
	}
	r.pool = pool

	name := textutil.SanitizeFileName(r.req.BinPrefix + r.p.now().Format(binTimeFormat))
	r.result.BinName = name

	cur, err := call(r, "RootFolder", pool.RootFolder)
	if err == nil && cur == nil {
		err = fmt.Errorf("media pool has no root folder")
	}
	if err != nil {
		return hostError("bin", "RootFolder", "media pool root unavailable", err)
	}
	for _, seg := range binPath(r.req.BinParent, name) {
		next, err := r.subFolder(cur, seg)
		if err != nil {
			return err
		}
		cur = next
	}
	ok, err := call(r, "SetCurrentFolder", func() (bool, error) { return pool.SetCurrentFolder(cur) })
	if err != nil || !ok {
		return hostError("bin", "SetCurrentFolder", "could not select bin "+name, err)
	}
	r.bin = cur
	r.logger.Info("bin ready", logging.String("bin", name), logging.String("bin_parent", r.req.BinParent))
	return nil
}

// subFolder finds the child bin called name under parent or creates it.
func (r *run) subFolder(parent host.Folder, name string) (host.Folder, error) {
	subs, err := call(r, "SubFolders", parent.SubFolders)
	if err != nil {
		return nil, hostError("bin", "SubFolders", "could not list bins", err)
	}
	for _, sub := range subs {
		subName, err := call(r, "Folder.Name", sub.Name)
		if err == nil && subName == name {
			return sub, nil
		}
	}
	created, err := call(r, "AddSubFolder", func() (host.Folder, error) { return r.pool.AddSubFolder(parent, name) })
	if err == nil && created == nil {
		err = fmt.Errorf("host returned no folder")
	}
	if err != nil {
		return nil, hostError("bin", "AddSubFolder", "could not create bin "+name, err)
	}
	return created, nil
}

func (r *run) importMedia() error {
	items, err := call(r, "ImportMedia", func() ([]host.Clip, error) { return r.pool.ImportMedia(r.result.Files) })
	if err != nil {
		return hostError("import", "ImportMedia", "import failed", err)
	}
	if len(items) == 0 {
		return services.Wrap(services.ErrExternalTool, "import", "ImportMedia",
			"no media imported; check the host's media storage settings", nil)
	}
	r.logger.Info("media imported", logging.Int("imported", len(items)), logging.Int("requested", len(r.result.Files)))
	r.progress(percentImported, "Import complete")
	return nil
}

type sortableClip struct {
	clip host.Clip
	key  string
}

func (r *run) collect() error {
	clips, err := call(r, "Clips", r.bin.Clips)
	if err != nil {
		return hostError("collect", "Clips", "could not list bin clips", err)
	}
	items := make([]sortableClip, 0, len(clips))
	skipped := 0
	for _, clip := range clips {
		props, err := call(r, "Properties", clip.Properties)
		if err != nil {
			props = nil
		}
		if !r.req.IncludeStills && isStill(props) {
			skipped++
			continue
		}
		items = append(items, sortableClip{clip: clip, key: strings.ToLower(r.sourceName(clip, props))})
	}
	if len(items) == 0 {
		return services.Wrap(services.ErrValidation, "collect", "filter clips", "no usable clips for the timeline", nil)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].key < items[j].key })

	r.clips = make([]host.Clip, len(items))
	order := make([]string, len(items))
	for i, it := range items {
		r.clips[i] = it.clip
		order[i] = it.key
	}
	r.result.ClipCount = len(r.clips)
	r.update(func(rec *jobstate.Record) { rec.ClipCount = len(r.clips) })
	r.logger.Info("clips collected",
		logging.Int("clip_count", len(r.clips)),
		logging.Int("stills_skipped", skipped),
		logging.String("order", strings.Join(order, ", ")),
	)
	return nil
}

func isStill(props map[string]string) bool {
	kind := props["Type"]
	if kind == "" {
		kind = props["MediaType"]
	}
	return strings.Contains(strings.ToLower(kind), "still")
}

// sourceName is the clip's file name, falling back to the clip name.
func (r *run) sourceName(clip host.Clip, props map[string]string) string {
	if path := strings.TrimSpace(props["File Path"]); path != "" {
		return filepath.Base(filepath.FromSlash(strings.ReplaceAll(path, "\\", "/")))
	}
	if name := strings.TrimSpace(props["Filename"]); name != "" {
		return name
	}
	name, err := call(r, "Clip.Name", clip.Name)
	if err != nil {
		return ""
	}
	return name
}

func (r *run) timelineName() string {
	if r.req.TimelinePrefix != "" {
		return r.req.TimelinePrefix + r.result.BinName
	}
	return r.result.BinName
}

func (r *run) seedTimelineSettings() {
	if r.req.FPS <= 0 && (r.req.Width <= 0 || r.req.Height <= 0) {
		return
	}
	count, err := call(r, "TimelineCount", r.project.TimelineCount)
	if err != nil || count > 0 {
		return
	}
	settings := [][2]string{}
	if r.req.FPS > 0 {
		fps := strconv.FormatFloat(r.req.FPS, 'f', -1, 64)
		settings = append(settings, [2]string{"timelineFrameRate", fps}, [2]string{"timelinePlaybackFrameRate", fps})
	}
	if r.req.Width > 0 && r.req.Height > 0 {
		settings = append(settings,
			[2]string{"timelineResolutionWidth", strconv.Itoa(r.req.Width)},
			[2]string{"timelineResolutionHeight", strconv.Itoa(r.req.Height)},
		)
	}
	for _, kv := range settings {
		ok, err := call(r, "SetSetting", func() (bool, error) { return r.project.SetSetting(kv[0], kv[1]) })
		if err != nil || !ok {
			r.warn("timeline setting not applied", "timeline_setting_failed", "timeline uses the project default",
				logging.String("setting", kv[0]), logging.String("value", kv[1]), logging.Error(err))
		}
	}
}

func (r *run) buildTimeline() error {
	r.seedTimelineSettings()
	name := r.timelineName()
	r.result.Timeline = name

	tl, err := call(r, "CreateTimelineFromClips", func() (host.Timeline, error) {
		return r.pool.CreateTimelineFromClips(name, r.clips)
	})
	if err == nil && tl != nil {
		return r.timelineCreated(name, "clips")
	}
	r.logger.Info("timeline from clips failed; trying clip info records", logging.Error(err))

	tl, err = call(r, "CreateTimelineFromClipInfos", func() (host.Timeline, error) {
		return r.pool.CreateTimelineFromClipInfos(name, r.clips)
	})
	if err == nil && tl != nil {
		return r.timelineCreated(name, "clip_infos")
	}
	r.logger.Info("timeline from clip info records failed; appending to an empty timeline", logging.Error(err))

	empty, err := call(r, "CreateEmptyTimeline", func() (host.Timeline, error) { return r.pool.CreateEmptyTimeline(name) })
	if err == nil && empty == nil {
		err = fmt.Errorf("host returned no timeline")
	}
	if err != nil {
		return hostError("timeline", "CreateEmptyTimeline", "could not create timeline "+name, err)
	}
	if ok, err := call(r, "SetCurrentTimeline", func() (bool, error) { return r.project.SetCurrentTimeline(empty) }); err != nil || !ok {
		r.warn("empty timeline not made current", "timeline_activate_failed", "append may target another timeline", logging.Error(err))
	}
	ok, err := call(r, "AppendToTimeline", func() (bool, error) { return r.pool.AppendToTimeline(r.clips) })
	if err != nil || !ok {
		return hostError("timeline", "AppendToTimeline", "append to empty timeline failed", err)
	}
	return r.timelineCreated(name, "append")
}

func (r *run) timelineCreated(name, method string) error {
	r.update(func(rec *jobstate.Record) { rec.Timeline = name })
	r.logger.Info("timeline created", logging.String("timeline", name), logging.String("method", method))
	return nil
}

// activateTimeline looks the timeline up again by name so the handle comes
// from the project, then makes it current.
func (r *run) activateTimeline() error {
	name := r.result.Timeline
	count, err := call(r, "TimelineCount", r.project.TimelineCount)
	if err != nil {
		return hostError("activate", "TimelineCount", "could not count timelines", err)
	}
	for i := 1; i <= count && r.timeline == nil; i++ {
		tl, err := call(r, "TimelineByIndex", func() (host.Timeline, error) { return r.project.TimelineByIndex(i) })
		if err != nil || tl == nil {
			continue
		}
		if tlName, err := call(r, "Timeline.Name", tl.Name); err == nil && tlName == name {
			r.timeline = tl
		}
	}
	if r.timeline == nil {
		return services.Wrap(services.ErrExternalTool, "activate", "TimelineByIndex",
			fmt.Sprintf("timeline %q not found after creation", name), nil)
	}
	ok, err := call(r, "SetCurrentTimeline", func() (bool, error) { return r.project.SetCurrentTimeline(r.timeline) })
	if err != nil || !ok {
		r.warn("timeline not made current", "timeline_activate_failed", "render may use another timeline",
			logging.String("timeline", name), logging.Error(err))
	}
	r.progress(percentTimeline, "Timeline ready")
	return nil
}

func (r *run) applyPreset() error {
	presets, err := call(r, "RenderPresets", r.project.RenderPresets)
	if err != nil {
		return hostError("preset", "RenderPresets", "could not list render presets", err)
	}
	if !slices.Contains(presets, r.req.Preset) {
		available := "none"
		if len(presets) > 0 {
			available = strings.Join(presets, ", ")
		}
		return services.Wrap(services.ErrValidation, "preset", "LoadRenderPreset",
			fmt.Sprintf("render preset %q not found; available: %s", r.req.Preset, available), nil)
	}
	ok, err := call(r, "LoadRenderPreset", func() (bool, error) { return r.project.LoadRenderPreset(r.req.Preset) })
	if err != nil || !ok {
		r.warn("render preset load not confirmed", "preset_load_unconfirmed", "overrides applied on current settings",
			logging.String("preset", r.req.Preset), logging.Error(err))
	}

	settings, err := r.renderOverrides()
	if err != nil {
		return err
	}
	if len(settings) > 0 {
		ok, err := call(r, "SetRenderSettings", func() (bool, error) { return r.project.SetRenderSettings(settings) })
		if err != nil || !ok {
			r.warn("render overrides may not be applied", "render_settings_failed", "output uses preset settings",
				logging.Int("override_count", len(settings)), logging.Error(err))
		}
	}
	if r.req.SingleClip {
		ok, err := call(r, "SetRenderMode", func() (bool, error) { return r.project.SetRenderMode(host.RenderModeSingleClip) })
		if err != nil || !ok {
			r.warn("single clip render mode not applied", "render_mode_failed", "one file per clip may be rendered", logging.Error(err))
		}
	}
	r.logger.Info("render preset applied", logging.String("preset", r.req.Preset), logging.Int("override_count", len(settings)))
	return nil
}

func (r *run) renderOverrides() (host.RenderSettings, error) {
	settings := host.RenderSettings{}
	if dir := strings.TrimSpace(r.req.OutputDir); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "preset", "output dir", dir, err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "preset", "output dir", "could not create "+abs, err)
		}
		settings["TargetDir"] = abs
	}
	if name := textutil.SanitizeFileName(r.req.CustomName); name != "" {
		settings["CustomName"] = name
	}
	if r.req.Unique {
		settings["UniqueFilename"] = true
	}
	if r.req.Format != "" {
		settings["Format"] = r.req.Format
	}
	if r.req.Codec != "" {
		settings["VideoCodec"] = r.req.Codec
	}
	if r.req.Width > 0 && r.req.Height > 0 {
		settings["ResolutionWidth"] = r.req.Width
		settings["ResolutionHeight"] = r.req.Height
	}
	return settings, nil
}

func (r *run) submit() error {
	id, err := call(r, "AddRenderJob", r.project.AddRenderJob)
	if err != nil {
		return hostError("submit", "AddRenderJob", "render job not queued; check preset and overrides", err)
	}
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrExternalTool, "submit", "AddRenderJob",
			"render job not queued; check preset and overrides", nil)
	}
	r.jobID = id
	r.result.JobID = id
	r.update(func(rec *jobstate.Record) {
		rec.State = jobstate.StateRendering
		rec.JobID = id
		rec.JobStatus = "Queued"
		rec.Message = "Rendering"
		rec.Percent = percentTimeline
	})
	r.logger.Info("render job queued", logging.String("job_id", id))
	return nil
}

func (r *run) start() error {
	ok, err := call(r, "StartRendering", func() (bool, error) { return r.project.StartRendering(r.jobID) })
	if err == nil && ok {
		return r.started()
	}
	r.logger.Info("start with job id refused; starting the whole queue", logging.Error(err))
	ok, err = call(r, "StartRendering()", func() (bool, error) { return r.project.StartRendering() })
	if err == nil && ok {
		return r.started()
	}
	r.cleanup()
	return hostError("start", "StartRendering", "render could not be started", err)
}

func (r *run) started() error {
	r.p.setActive(r.project, r.jobID)
	return nil
}

// cleanup removes the job from the host queue. It must run even when the
// run context has been cancelled.
func (r *run) cleanup() error {
	if r.jobID == "" {
		return nil
	}
	id := r.jobID
	r.jobID = ""
	ctx := context.WithoutCancel(r.ctx)
	ok, err := hostcall.Call(ctx, r.p.callTimeout, "DeleteRenderJob", func() (bool, error) {
		return r.project.DeleteRenderJob(id)
	})
	if err != nil || !ok {
		r.warn("render job not removed from queue", "job_delete_failed", "job stays in the host render queue",
			logging.String("job_id", id), logging.Error(err))
		return nil
	}
	r.logger.Debug("render job removed", logging.String("job_id", id))
	return nil
}
