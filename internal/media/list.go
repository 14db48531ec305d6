package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mediasolver/internal/services"
)

// ErrNoMedia reports a source folder without any matching file.
var ErrNoMedia = errors.New("no media files found")

// Options controls which files List returns.
type Options struct {
	// Extensions are lower-case and dot-prefixed (".mp4").
	Extensions []string
	Recursive  bool
}

// Matches reports whether path carries one of the allowed extensions.
func (o Options) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext != "" && slices.Contains(o.Extensions, ext)
}

// List returns the absolute paths of matching files under dir, sorted. Hidden
// files and directories are skipped.
func List(dir string, opts Options) ([]string, error) {
	root, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "enumerate", "resolve source", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrValidation, "enumerate", "stat source", "source folder not found: "+root, nil)
		}
		return nil, services.Wrap(services.ErrValidation, "enumerate", "stat source", root, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "enumerate", "stat source", "source is not a folder: "+root, nil)
	}

	var files []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && opts.Matches(name) {
			files = append(files, path)
		}
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, services.Wrap(services.ErrValidation, "enumerate", "walk source", root, err)
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrValidation, "enumerate", "list media",
			fmt.Sprintf("%s in %s (extensions %s)", ErrNoMedia, root, strings.Join(opts.Extensions, ", ")), ErrNoMedia)
	}
	slices.Sort(files)
	return files, nil
}

// Filter keeps the existing, matching regular files of paths, made absolute
// and sorted. It is used when a caller supplies an explicit file set.
func Filter(paths []string, opts Options) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || !opts.Matches(abs) {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrValidation, "enumerate", "filter media", ErrNoMedia.Error(), ErrNoMedia)
	}
	slices.Sort(files)
	return files, nil
}
