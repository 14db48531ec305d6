package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"testing"

	"mediasolver/internal/host"
	"mediasolver/internal/host/bridge"
)

type fakeBridge struct {
	mu          sync.Mutex
	engine      bool
	rootMethods []string
	calls       []bridge.InvokeArgs
	results     map[string]any
}

func (f *fakeBridge) Hello(args bridge.HelloArgs, reply *bridge.HelloReply) error {
	reply.Product = "Editing Host"
	reply.Version = "19.1"
	reply.Engine = f.engine
	return nil
}

func (f *fakeBridge) Describe(args bridge.DescribeArgs, reply *bridge.DescribeReply) error {
	reply.Methods = f.rootMethods
	return nil
}

func (f *fakeBridge) Invoke(args bridge.InvokeArgs, reply *bridge.InvokeReply) error {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	value, ok := f.results[args.Target+"."+args.Method]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such method: %s", args.Method)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	reply.Value = data
	return nil
}

func (f *fakeBridge) lastCall(method string) (bridge.InvokeArgs, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method {
			return f.calls[i], true
		}
	}
	return bridge.InvokeArgs{}, false
}

func serve(t *testing.T, fake *fakeBridge) string {
	t.Helper()
	server := rpc.NewServer()
	if err := server.RegisterName(bridge.ServiceName, fake); err != nil {
		t.Fatalf("register: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}()
	return ln.Addr().String()
}

func ref(id string) map[string]string { return map[string]string{"$ref": id} }

func nativeFake() *fakeBridge {
	return &fakeBridge{
		engine:      true,
		rootMethods: []string{"GetProjectManager", "GetVersionString"},
		results: map[string]any{
			".GetProjectManager":               ref("pm"),
			"pm.GetCurrentProject":             ref("p1"),
			"pm.CloseProject":                  true,
			"p1.GetName":                       "MediaSolver",
			"p1.GetRenderPresetList":           map[string]string{"2": "ProRes 422", "1": "H.264 Master", "10": "YouTube"},
			"p1.GetRenderJobStatus":            map[string]any{"JobStatus": "Rendering", "CompletionPercentage": 42},
			"p1.StartRendering":                true,
			"p1.AddRenderJob":                  "job-1",
			"p1.GetMediaPool":                  ref("mp"),
			"p1.GetTimelineCount":              2,
			"mp.ImportMedia":                   []any{ref("c1"), ref("c2")},
			"mp.CreateTimelineFromClips":       nil,
			"c1.GetClipProperty":               map[string]any{"File Path": "/media/A.mp4", "Type": "Video", "Frames": 240},
			"mp.GetRootFolder":                 ref("root"),
			"root.GetSubFolderList":            []any{ref("f1")},
			"f1.GetName":                       "INGEST_20240101_120000",
			"mp.AppendToTimeline":              []any{},
			"p1.SetCurrentRenderMode":          1,
			"pm.GetProjectListInCurrentFolder": []string{"MediaSolver", "Other"},
		},
	}
}

func TestDialDetectsNativeGeneration(t *testing.T) {
	fake := nativeFake()
	addr := serve(t, fake)

	sess, err := bridge.Dialer{Address: addr}.DialSession(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sess.Close()
	if sess.Generation().Name() != "native" {
		t.Fatalf("expected native generation, got %s", sess.Generation().Name())
	}
	if sess.Version != "19.1" {
		t.Fatalf("unexpected version %q", sess.Version)
	}

	pm, err := sess.ProjectManager()
	if err != nil || pm == nil {
		t.Fatalf("project manager: %v %v", pm, err)
	}
	proj, err := pm.CurrentProject()
	if err != nil || proj == nil {
		t.Fatalf("current project: %v %v", proj, err)
	}
	name, err := proj.Name()
	if err != nil || name != "MediaSolver" {
		t.Fatalf("name = %q, %v", name, err)
	}

	presets, err := proj.RenderPresets()
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	if fmt.Sprint(presets) != "[H.264 Master ProRes 422 YouTube]" {
		t.Fatalf("expected index ordered presets, got %v", presets)
	}

	status, err := proj.RenderJobStatus("job-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status["JobStatus"] != "Rendering" || status["CompletionPercentage"] != float64(42) {
		t.Fatalf("unexpected status %v", status)
	}

	if ok, err := proj.StartRendering("job-1"); err != nil || !ok {
		t.Fatalf("start rendering: %v %v", ok, err)
	}
	call, _ := fake.lastCall("StartRendering")
	if fmt.Sprint(call.Args) != "[[job-1]]" {
		t.Fatalf("expected job id list argument, got %v", call.Args)
	}

	if ok, err := pm.CloseProject(proj); err != nil || !ok {
		t.Fatalf("close: %v %v", ok, err)
	}
	call, _ = fake.lastCall("CloseProject")
	if len(call.Args) != 1 || fmt.Sprint(call.Args[0]) != "map[$ref:p1]" {
		t.Fatalf("expected project handle argument, got %v", call.Args)
	}

	if ok, err := proj.SetRenderMode(host.RenderModeSingleClip); err != nil || !ok {
		t.Fatalf("render mode: %v %v", ok, err)
	}
	count, err := proj.TimelineCount()
	if err != nil || count != 2 {
		t.Fatalf("timeline count = %d, %v", count, err)
	}
}

func TestMediaPoolCalls(t *testing.T) {
	fake := nativeFake()
	addr := serve(t, fake)
	sess, err := bridge.Dialer{Address: addr, Generation: "native"}.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sess.Close()
	pm, _ := sess.ProjectManager()
	proj, _ := pm.CurrentProject()
	pool, err := proj.MediaPool()
	if err != nil || pool == nil {
		t.Fatalf("media pool: %v", err)
	}
	clips, err := pool.ImportMedia([]string{"/media/A.mp4", "/media/b.mp4"})
	if err != nil || len(clips) != 2 {
		t.Fatalf("import: %d %v", len(clips), err)
	}
	props, err := clips[0].Properties()
	if err != nil {
		t.Fatalf("properties: %v", err)
	}
	if props["File Path"] != "/media/A.mp4" || props["Frames"] != "240" {
		t.Fatalf("unexpected properties %v", props)
	}

	tl, err := pool.CreateTimelineFromClips("TL", clips)
	if err != nil || tl != nil {
		t.Fatalf("expected nil timeline for null result, got %v %v", tl, err)
	}

	if ok, err := pool.AppendToTimeline(clips); err != nil || ok {
		t.Fatalf("empty append result should be false: %v %v", ok, err)
	}

	root, err := pool.RootFolder()
	if err != nil || root == nil {
		t.Fatalf("root folder: %v", err)
	}
	subs, err := root.SubFolders()
	if err != nil || len(subs) != 1 {
		t.Fatalf("sub folders: %v %v", subs, err)
	}
	if name, _ := subs[0].Name(); name != "INGEST_20240101_120000" {
		t.Fatalf("unexpected folder name %q", name)
	}
}

func TestDialDetectsSnakeGeneration(t *testing.T) {
	fake := &fakeBridge{
		engine:      true,
		rootMethods: []string{"get_project_manager"},
		results: map[string]any{
			".get_project_manager":                  ref("pm"),
			"pm.get_current_project":                ref("p1"),
			"p1.get_media_pool":                     ref("mp"),
			"mp.import_media":                       []any{ref("c1")},
			"mp.CreateTimelineFromClips":            ref("t1"),
			"pm.get_project_list_in_current_folder": []string{"A"},
		},
	}
	addr := serve(t, fake)
	sess, err := bridge.Dialer{Address: addr}.DialSession(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sess.Close()
	if sess.Generation().Name() != "snake" {
		t.Fatalf("expected snake generation, got %s", sess.Generation().Name())
	}
	pm, _ := sess.ProjectManager()
	if names, err := pm.ProjectsInCurrentFolder(); err != nil || len(names) != 1 {
		t.Fatalf("projects: %v %v", names, err)
	}
	proj, _ := pm.CurrentProject()
	pool, err := proj.MediaPool()
	if err != nil {
		t.Fatalf("media pool: %v", err)
	}
	clips, err := pool.ImportMedia([]string{"/media/a.mp4"})
	if err != nil || len(clips) != 1 {
		t.Fatalf("import: %v", err)
	}
	tl, err := pool.CreateTimelineFromClipInfos("TL", clips)
	if err != nil || tl == nil {
		t.Fatalf("lower level create: %v %v", tl, err)
	}
	call, _ := fake.lastCall("CreateTimelineFromClips")
	if fmt.Sprint(call.Args) != "[TL [map[mediaPoolItem:map[$ref:c1]]]]" {
		t.Fatalf("expected clip info records, got %v", call.Args)
	}
}

func TestUnsupportedMethodMapsToErrNoMethod(t *testing.T) {
	fake := nativeFake()
	addr := serve(t, fake)
	sess, err := bridge.Dialer{Address: addr}.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sess.Close()
	pm, _ := sess.ProjectManager()
	_, err = pm.GotoRootFolder()
	if !errors.Is(err, host.ErrNoMethod) {
		t.Fatalf("expected ErrNoMethod, got %v", err)
	}
}

func TestDialWithoutEngineIsUnavailable(t *testing.T) {
	fake := nativeFake()
	fake.engine = false
	addr := serve(t, fake)
	_, err := bridge.Dialer{Address: addr}.Dial(context.Background())
	if !errors.Is(err, host.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestDialRefusedIsUnavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = bridge.Dialer{Address: addr}.Dial(context.Background())
	if !errors.Is(err, host.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if bridge.Reachable(context.Background(), "tcp", addr, 0) {
		t.Fatal("closed address should not be reachable")
	}
}

func TestDialRejectsUnknownRoot(t *testing.T) {
	fake := nativeFake()
	fake.rootMethods = []string{"Quit"}
	addr := serve(t, fake)
	if _, err := (bridge.Dialer{Address: addr}).Dial(context.Background()); err == nil {
		t.Fatal("expected generation detection failure")
	}
	if _, err := (bridge.Dialer{Address: addr, Generation: "lua"}).Dial(context.Background()); err == nil {
		t.Fatal("expected unknown generation error")
	}
}
