package renderstatus_test

import (
	"testing"
	"time"

	"mediasolver/internal/host"
	"mediasolver/internal/renderstatus"
)

func TestDerivePercentEncodings(t *testing.T) {
	tests := []struct {
		name string
		raw  host.RawStatus
		want int
	}{
		{"zero int", host.RawStatus{"Progress": 0}, 0},
		{"zero string", host.RawStatus{"Progress": "0"}, 0},
		{"percent string", host.RawStatus{"CompletionPercentage": "100%"}, 100},
		{"fraction rounds up", host.RawStatus{"JobPercentage": 37.6}, 38},
		{"fraction rounds down", host.RawStatus{"PercentComplete": 37.4}, 37},
		{"padded percent string", host.RawStatus{"Progress": " 55 % "}, 55},
		{"clamped high", host.RawStatus{"Progress": 140}, 100},
		{"clamped low", host.RawStatus{"Progress": -3}, 0},
		{"missing", host.RawStatus{"JobStatus": "Rendering"}, 0},
		{"nil record", nil, 0},
		{"unparseable", host.RawStatus{"Progress": "soon"}, 0},
		{"bool is unparseable", host.RawStatus{"Progress": true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderstatus.DerivePercent(tt.raw); got != tt.want {
				t.Fatalf("DerivePercent(%v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDerivePercentAliasPriority(t *testing.T) {
	raw := host.RawStatus{"PercentComplete": 90, "CompletionPercentage": 40, "JobPercentage": 12}
	if got := renderstatus.DerivePercent(raw); got != 12 {
		t.Fatalf("expected JobPercentage to win over later aliases, got %d", got)
	}
	raw["Progress"] = "7%"
	if got := renderstatus.DerivePercent(raw); got != 7 {
		t.Fatalf("expected Progress to win, got %d", got)
	}
	raw = host.RawStatus{"Progress": nil, "CompletionPercentage": 64}
	if got := renderstatus.DerivePercent(raw); got != 64 {
		t.Fatalf("nil alias should count as absent, got %d", got)
	}
}

func TestDeriveTerminalState(t *testing.T) {
	tests := []struct {
		name string
		raw  host.RawStatus
		want renderstatus.State
	}{
		{"cancelled at 100 is failed", host.RawStatus{"JobStatus": "Cancelled", "CompletionPercentage": 100}, renderstatus.Failed},
		{"failed text", host.RawStatus{"Status": "Failed"}, renderstatus.Failed},
		{"complete text", host.RawStatus{"JobStatus": "Complete", "CompletionPercentage": 100}, renderstatus.Succeeded},
		{"lowercase finished", host.RawStatus{"State": "finished"}, renderstatus.Succeeded},
		{"100 without text or error", host.RawStatus{"CompletionPercentage": 100}, renderstatus.Succeeded},
		{"100 with zero error", host.RawStatus{"Progress": "100%", "Error": 0}, renderstatus.Succeeded},
		{"100 with string zero error", host.RawStatus{"Progress": 100, "Error": "0"}, renderstatus.Succeeded},
		{"error indicator", host.RawStatus{"Progress": 40, "Error": "disk full"}, renderstatus.Failed},
		{"error indicator true", host.RawStatus{"Error": true}, renderstatus.Failed},
		{"rendering text", host.RawStatus{"JobStatus": "Rendering", "CompletionPercentage": 40}, renderstatus.Running},
		{"queued", host.RawStatus{"JobStatus": "Queued"}, renderstatus.Running},
		{"no signal", host.RawStatus{}, renderstatus.Running},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderstatus.DeriveTerminalState(tt.raw); got != tt.want {
				t.Fatalf("DeriveTerminalState(%v) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDeriveETAExtrapolates(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(60 * time.Second)
	if got := renderstatus.DeriveETA(host.RawStatus{}, 50, start, now); got != "1:00" {
		t.Fatalf("expected 1:00, got %q", got)
	}
	if got := renderstatus.DeriveETA(host.RawStatus{}, 0, start, now); got != "" {
		t.Fatalf("expected no ETA at zero percent, got %q", got)
	}
	if got := renderstatus.DeriveETA(host.RawStatus{}, 50, time.Time{}, now); got != "" {
		t.Fatalf("expected no ETA without start time, got %q", got)
	}
}

func TestDeriveETAExplicitFields(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(10 * time.Second)
	tests := []struct {
		name string
		raw  host.RawStatus
		want string
	}{
		{"milliseconds", host.RawStatus{"EstimatedTimeRemainingInMs": 125000}, "2:05"},
		{"milliseconds beat seconds", host.RawStatus{"EstimatedTimeRemainingInMs": 3723000, "TimeRemaining": 5}, "1:02:03"},
		{"zero milliseconds fall through", host.RawStatus{"EstimatedTimeRemainingInMs": 0, "TimeRemaining": 90}, "1:30"},
		{"clock text kept", host.RawStatus{"TimeRemaining": "0:04:10"}, "0:04:10"},
		{"numeric string seconds", host.RawStatus{"ETA": "75"}, "1:15"},
		{"free text", host.RawStatus{"EstimatedTimeRemaining": "about a minute"}, "about a minute"},
		{"minutes", host.RawStatus{"TimeRemainingInMinutes": 2}, "2:00"},
		{"zero string skipped", host.RawStatus{"TimeRemaining": "0"}, "0:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderstatus.DeriveETA(tt.raw, 25, start, now); got != tt.want {
				t.Fatalf("DeriveETA(%v) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[float64]string{
		0:       "0:00",
		59.4:    "0:59",
		60:      "1:00",
		3599:    "59:59",
		3600:    "1:00:00",
		36125:   "10:02:05",
		-5:      "0:00",
	}
	for in, want := range cases {
		if got := renderstatus.FormatClock(in); got != want {
			t.Fatalf("FormatClock(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseBuildsSnapshot(t *testing.T) {
	start := time.Now().Add(-30 * time.Second)
	snap := renderstatus.Parse(host.RawStatus{
		"JobStatus":            "Rendering",
		"CompletionPercentage": 42.5,
		"RenderFPS":            "23.9",
		"CurrentClip":          "A.mp4",
		"TimeRemaining":        "0:41",
	}, start, time.Now())
	if snap.Percent != 43 || snap.State != renderstatus.Running || snap.ETA != "0:41" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Label != "Rendering" || snap.CurrentClip != "A.mp4" || snap.FPS != 23.9 {
		t.Fatalf("unexpected snapshot details %+v", snap)
	}
	failed := renderstatus.Parse(host.RawStatus{"Error": "codec missing"}, time.Time{}, time.Now())
	if failed.State != renderstatus.Failed || failed.ErrorText != "codec missing" {
		t.Fatalf("unexpected failed snapshot %+v", failed)
	}
}
