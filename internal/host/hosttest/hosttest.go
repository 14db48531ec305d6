// Package hosttest provides an in-memory editing host for tests of the
// reconciler, the render pipeline, and the HTTP surface.
package hosttest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"mediasolver/internal/host"
)

// LibraryFolder is a folder of the host's project library.
type LibraryFolder struct {
	Name     string
	Projects []string
	Children []*LibraryFolder
}

// Host is a scriptable fake implementing host.Dialer, host.Session and
// host.ProjectManager. Operations are identified by their method name
// ("Dial", "OpenFolder", "Project.AddRenderJob", ...).
type Host struct {
	mu sync.Mutex

	Unavailable      bool
	NoProjectManager bool
	Library          *LibraryFolder
	Current          *Project
	// CloseNeedsNoArg makes CloseProject with a project argument fail, as
	// on hosts that only accept the argument-less form.
	CloseNeedsNoArg bool
	// ProjectTemplate seeds projects created or loaded by name.
	ProjectTemplate func(name string) *Project

	projects map[string]*Project
	cursor   []string
	calls    []string
	hangs    map[string]bool
	failures map[string]error
	results  map[string]bool
	release  chan struct{}
	closed   bool
}

// New returns a running host with an empty library root.
func New() *Host {
	return &Host{
		Library:  &LibraryFolder{Name: "Root"},
		projects: map[string]*Project{},
		hangs:    map[string]bool{},
		failures: map[string]error{},
		results:  map[string]bool{},
		release:  make(chan struct{}),
	}
}

// Release unblocks every hung call. Tests should defer it.
func (h *Host) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		close(h.release)
		h.closed = true
	}
}

// Hang makes op block until Release.
func (h *Host) Hang(op string) {
	h.mu.Lock()
	h.hangs[op] = true
	h.mu.Unlock()
}

// Fail makes op return err.
func (h *Host) Fail(op string, err error) {
	h.mu.Lock()
	h.failures[op] = err
	h.mu.Unlock()
}

// Refuse makes a boolean or handle returning op report false/nil.
func (h *Host) Refuse(op string) {
	h.mu.Lock()
	h.results[op] = false
	h.mu.Unlock()
}

// Calls returns the recorded operation names in call order.
func (h *Host) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// Called reports whether op was invoked.
func (h *Host) Called(op string) bool {
	for _, c := range h.Calls() {
		if c == op {
			return true
		}
	}
	return false
}

// AddProject registers a project under the library folder at path
// (slash separated, empty for root).
func (h *Host) AddProject(path string, p *Project) {
	h.mu.Lock()
	defer h.mu.Unlock()
	folder := h.Library
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			folder = folder.ensureChild(seg)
		}
	}
	folder.Projects = append(folder.Projects, p.name)
	p.host = h
	h.projects[p.name] = p
}

// Open makes p the current project without registering it in the library.
func (h *Host) Open(p *Project) {
	h.mu.Lock()
	p.host = h
	h.Current = p
	h.mu.Unlock()
}

// CurrentName returns the current project's name or "".
func (h *Host) CurrentName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Current == nil {
		return ""
	}
	return h.Current.name
}

func (f *LibraryFolder) ensureChild(name string) *LibraryFolder {
	for _, c := range f.Children {
		if c.Name == name {
			return c
		}
	}
	child := &LibraryFolder{Name: name}
	f.Children = append(f.Children, child)
	return child
}

func (h *Host) enter(op string) (bool, error) {
	h.mu.Lock()
	h.calls = append(h.calls, op)
	hang := h.hangs[op]
	err := h.failures[op]
	ok, refused := h.results[op]
	release := h.release
	h.mu.Unlock()
	if hang {
		<-release
		return false, errors.New(op + ": released")
	}
	if err != nil {
		return false, err
	}
	return !refused || ok, nil
}

func (h *Host) folderAt(path []string) *LibraryFolder {
	folder := h.Library
	for _, seg := range path {
		var next *LibraryFolder
		for _, c := range folder.Children {
			if c.Name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		folder = next
	}
	return folder
}

func (h *Host) projectFor(name string) *Project {
	if p, ok := h.projects[name]; ok {
		return p
	}
	var p *Project
	if h.ProjectTemplate != nil {
		p = h.ProjectTemplate(name)
	}
	if p == nil {
		p = NewProject(name)
	}
	p.name = name
	p.host = h
	h.projects[name] = p
	return p
}

// Dial implements host.Dialer.
func (h *Host) Dial(ctx context.Context) (host.Session, error) {
	if _, err := h.enter("Dial"); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Unavailable {
		return nil, fmt.Errorf("%w: fake host offline", host.ErrEngineUnavailable)
	}
	return h, nil
}

// ProjectManager implements host.Session.
func (h *Host) ProjectManager() (host.ProjectManager, error) {
	if _, err := h.enter("ProjectManager"); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.NoProjectManager {
		return nil, nil
	}
	return h, nil
}

// Close implements host.Session.
func (h *Host) Close() error { return nil }

func (h *Host) CurrentProject() (host.Project, error) {
	if _, err := h.enter("CurrentProject"); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Current == nil {
		return nil, nil
	}
	return h.Current, nil
}

func (h *Host) ProjectsInCurrentFolder() ([]string, error) {
	if _, err := h.enter("ProjectsInCurrentFolder"); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	folder := h.folderAt(h.cursor)
	if folder == nil {
		return nil, nil
	}
	return append([]string(nil), folder.Projects...), nil
}

func (h *Host) FoldersInCurrentFolder() ([]string, error) {
	if _, err := h.enter("FoldersInCurrentFolder"); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	folder := h.folderAt(h.cursor)
	if folder == nil {
		return nil, nil
	}
	names := make([]string, 0, len(folder.Children))
	for _, c := range folder.Children {
		names = append(names, c.Name)
	}
	return names, nil
}

func (h *Host) GotoRootFolder() (bool, error) {
	ok, err := h.enter("GotoRootFolder")
	if err != nil || !ok {
		return false, err
	}
	h.mu.Lock()
	h.cursor = nil
	h.mu.Unlock()
	return true, nil
}

func (h *Host) OpenFolder(name string) (bool, error) {
	ok, err := h.enter("OpenFolder")
	if err != nil || !ok {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	next := append(append([]string(nil), h.cursor...), name)
	if h.folderAt(next) == nil {
		return false, nil
	}
	h.cursor = next
	return true, nil
}

func (h *Host) SaveProject() (bool, error) {
	return h.enter("SaveProject")
}

func (h *Host) CloseProject(p host.Project) (bool, error) {
	op := "CloseProject"
	if p == nil {
		op = "CloseProject()"
	}
	ok, err := h.enter(op)
	if err != nil || !ok {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if p != nil && h.CloseNeedsNoArg {
		return false, errors.New("CloseProject takes no arguments")
	}
	h.Current = nil
	return true, nil
}

func (h *Host) CreateProject(name string) (host.Project, error) {
	ok, err := h.enter("CreateProject")
	if err != nil || !ok {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	folder := h.folderAt(h.cursor)
	if folder == nil {
		return nil, nil
	}
	for _, existing := range folder.Projects {
		if existing == name {
			return nil, nil
		}
	}
	folder.Projects = append(folder.Projects, name)
	p := h.projectFor(name)
	h.Current = p
	return p, nil
}

func (h *Host) LoadProject(name string) (host.Project, error) {
	ok, err := h.enter("LoadProject")
	if err != nil || !ok {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	folder := h.folderAt(h.cursor)
	if folder == nil {
		return nil, nil
	}
	for _, existing := range folder.Projects {
		if existing == name {
			p := h.projectFor(name)
			h.Current = p
			return p, nil
		}
	}
	return nil, nil
}

func baseName(path string) string {
	return filepath.Base(filepath.FromSlash(path))
}
