package media_test

import (
	"errors"
	"path/filepath"
	"testing"

	"mediasolver/internal/media"
	"mediasolver/internal/services"
	"mediasolver/internal/testsupport"
)

var videoOpts = media.Options{Extensions: []string{".mp4", ".mov"}}

func TestListTopLevelOnly(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "b.mp4"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, "A.MP4"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, "clip.mov"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, ".hidden.mp4"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, "sub", "deep.mp4"), 1)

	files, err := media.List(dir, videoOpts)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		filepath.Join(dir, "A.MP4"),
		filepath.Join(dir, "b.mp4"),
		filepath.Join(dir, "clip.mov"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("got %v, want %v", files, want)
		}
	}
}

func TestListRecursive(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "top.mp4"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, "day1", "cam", "a.mp4"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, ".cache", "skip.mp4"), 1)

	opts := videoOpts
	opts.Recursive = true
	files, err := media.List(dir, opts)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
}

func TestListErrors(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "readme.md"), 1)

	_, err := media.List(dir, videoOpts)
	if !errors.Is(err, media.ErrNoMedia) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected no-media validation error, got %v", err)
	}

	_, err = media.List(filepath.Join(dir, "missing"), videoOpts)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing folder, got %v", err)
	}

	_, err = media.List(filepath.Join(dir, "readme.md"), videoOpts)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for file source, got %v", err)
	}
}

func TestFilter(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mov")
	testsupport.WriteFile(t, a, 1)
	testsupport.WriteFile(t, b, 1)

	files, err := media.Filter([]string{b, a, a, filepath.Join(dir, "gone.mp4"), filepath.Join(dir, "x.txt")}, videoOpts)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(files) != 2 || files[0] != a || files[1] != b {
		t.Fatalf("unexpected filter result %v", files)
	}

	if _, err := media.Filter(nil, videoOpts); !errors.Is(err, media.ErrNoMedia) {
		t.Fatalf("expected ErrNoMedia, got %v", err)
	}
}
