package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"mediasolver/internal/jobstate"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name string
		rec  jobstate.Record
		want string
	}{
		{
			name: "idle",
			rec:  jobstate.Record{State: jobstate.StateIdle},
			want: "[  0%]  idle",
		},
		{
			name: "rendering shows host status",
			rec: jobstate.Record{State: jobstate.StateRendering, Percent: 42, Message: "Rendering",
				JobStatus: "Rendering", ETA: "00:01:05", FPS: 23.976},
			want: "[ 42%]  rendering  Rendering  ETA 00:01:05  24.0 fps",
		},
		{
			name: "error carries message",
			rec:  jobstate.Record{State: jobstate.StateError, Percent: 99, Message: "Failed", Error: "interrupted"},
			want: "[ 99%]  error  Failed  interrupted",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatProgress(tc.rec, false); got != tc.want {
				t.Fatalf("formatProgress = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProgressPrinterSkipsDuplicates(t *testing.T) {
	var buf bytes.Buffer
	print := newProgressPrinter(&buf, false)
	rec := jobstate.Record{State: jobstate.StatePreparing, Percent: 3, Message: "Importing"}
	print(rec)
	print(rec)
	rec.Percent = 10
	print(rec)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
}

func TestExitCodeDefaults(t *testing.T) {
	if code := exitCode(fmt.Errorf("plain")); code != 1 {
		t.Fatalf("plain error exit code = %d", code)
	}
	if code := exitCode(&exitError{code: 7}); code != 7 {
		t.Fatalf("exitError code = %d", code)
	}
}
