package bridge

import (
	"fmt"
	"strings"
	"unicode"
)

type op int

const (
	opGetProjectManager op = iota
	opGetCurrentProject
	opGetProjectListInCurrentFolder
	opGetFolderListInCurrentFolder
	opGotoRootFolder
	opOpenFolder
	opSaveProject
	opCloseProject
	opCreateProject
	opLoadProject
	opGetName
	opGetMediaPool
	opGetTimelineCount
	opGetTimelineByIndex
	opSetCurrentTimeline
	opSetSetting
	opGetRenderPresetList
	opLoadRenderPreset
	opSetRenderSettings
	opSetCurrentRenderMode
	opAddRenderJob
	opStartRendering
	opGetRenderJobStatus
	opDeleteRenderJob
	opGetRootFolder
	opAddSubFolder
	opSetCurrentFolder
	opImportMedia
	opCreateTimelineFromClips
	opCreateTimelineFromClipInfos
	opCreateEmptyTimeline
	opAppendToTimeline
	opGetSubFolderList
	opGetClipList
	opGetClipProperty
	opCount
)

var nativeNames = [opCount]string{
	opGetProjectManager:             "GetProjectManager",
	opGetCurrentProject:             "GetCurrentProject",
	opGetProjectListInCurrentFolder: "GetProjectListInCurrentFolder",
	opGetFolderListInCurrentFolder:  "GetFolderListInCurrentFolder",
	opGotoRootFolder:                "GotoRootFolder",
	opOpenFolder:                    "OpenFolder",
	opSaveProject:                   "SaveProject",
	opCloseProject:                  "CloseProject",
	opCreateProject:                 "CreateProject",
	opLoadProject:                   "LoadProject",
	opGetName:                       "GetName",
	opGetMediaPool:                  "GetMediaPool",
	opGetTimelineCount:              "GetTimelineCount",
	opGetTimelineByIndex:            "GetTimelineByIndex",
	opSetCurrentTimeline:            "SetCurrentTimeline",
	opSetSetting:                    "SetSetting",
	opGetRenderPresetList:           "GetRenderPresetList",
	opLoadRenderPreset:              "LoadRenderPreset",
	opSetRenderSettings:             "SetRenderSettings",
	opSetCurrentRenderMode:          "SetCurrentRenderMode",
	opAddRenderJob:                  "AddRenderJob",
	opStartRendering:                "StartRendering",
	opGetRenderJobStatus:            "GetRenderJobStatus",
	opDeleteRenderJob:               "DeleteRenderJob",
	opGetRootFolder:                 "GetRootFolder",
	opAddSubFolder:                  "AddSubFolder",
	opSetCurrentFolder:              "SetCurrentFolder",
	opImportMedia:                   "ImportMedia",
	opCreateTimelineFromClips:       "CreateTimelineFromClips",
	opCreateTimelineFromClipInfos:   "CreateTimelineFromClips",
	opCreateEmptyTimeline:           "CreateEmptyTimeline",
	opAppendToTimeline:              "AppendToTimeline",
	opGetSubFolderList:              "GetSubFolderList",
	opGetClipList:                   "GetClipList",
	opGetClipProperty:               "GetClipProperty",
}

// Generation is the method naming of one host API generation.
type Generation struct {
	name  string
	names [opCount]string
}

var (
	// Native is the host's own CamelCase scripting API.
	Native = Generation{name: "native", names: nativeNames}
	// Snake is the snake_case naming of the Python wrapper library. Its
	// lower-level timeline call reaches through to the native method.
	Snake = newSnakeGeneration()
)

func newSnakeGeneration() Generation {
	g := Generation{name: "snake"}
	for i, name := range nativeNames {
		g.names[i] = toSnake(name)
	}
	g.names[opCreateTimelineFromClipInfos] = nativeNames[opCreateTimelineFromClipInfos]
	return g
}

// Name is the configuration spelling of the generation.
func (g Generation) Name() string { return g.name }

func (g Generation) method(o op) string {
	return g.names[o]
}

// generationByName resolves a configured generation. "auto" and "" return
// ok=false so the dialer probes instead.
func generationByName(name string) (Generation, bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return Generation{}, false, nil
	case "native":
		return Native, true, nil
	case "snake":
		return Snake, true, nil
	default:
		return Generation{}, false, fmt.Errorf("unknown host api generation %q", name)
	}
}

// detectGeneration picks the generation whose project manager accessor the
// application root exposes. Native wins when both are present.
func detectGeneration(methods []string) (Generation, error) {
	have := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		have[m] = struct{}{}
	}
	for _, g := range []Generation{Native, Snake} {
		if _, ok := have[g.method(opGetProjectManager)]; ok {
			return g, nil
		}
	}
	return Generation{}, fmt.Errorf("host root exposes neither %s nor %s", Native.method(opGetProjectManager), Snake.method(opGetProjectManager))
}

func toSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
