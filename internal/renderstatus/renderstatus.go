package renderstatus

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"mediasolver/internal/host"
)

// State is the terminal classification of a render job.
type State int

const (
	Running State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "running"
	}
}

// Terminal reports whether the job has stopped.
func (s State) Terminal() bool { return s != Running }

// PercentKeys are the progress field aliases in priority order. The first
// key present decides; later keys are consulted only when earlier ones are absent.
var PercentKeys = []string{"Progress", "JobPercentage", "CompletionPercentage", "PercentComplete"}

// StatusTextKeys are the status label aliases in priority order.
var StatusTextKeys = []string{"JobStatus", "Status", "State"}

// ETASecondsKeys hold remaining time as seconds or preformatted text.
var ETASecondsKeys = []string{"TimeRemaining", "EstimatedTimeRemaining", "ETA", "TimeRemainingInSeconds"}

const (
	etaMillisKey  = "EstimatedTimeRemainingInMs"
	etaMinutesKey = "TimeRemainingInMinutes"
	errorKey      = "Error"
)

var (
	failureWords = []string{"cancel", "fail", "error", "abort"}
	successWords = []string{"complete", "success", "finished", "done"}
	fpsKeys      = []string{"RenderFPS", "CurrentFPS", "FPS"}
	clipKeys     = []string{"CurrentClip", "ClipName", "CurrentClipName"}
)

// Snapshot is the typed view of one status poll.
type Snapshot struct {
	Percent     int
	State       State
	ETA         string
	Label       string
	FPS         float64
	CurrentClip string
	ErrorText   string
}

// Parse derives every snapshot field from raw. startedAt is when rendering
// began; a zero value disables ETA extrapolation.
func Parse(raw host.RawStatus, startedAt, now time.Time) Snapshot {
	pct := DerivePercent(raw)
	snap := Snapshot{
		Percent:     pct,
		State:       DeriveTerminalState(raw),
		ETA:         DeriveETA(raw, pct, startedAt, now),
		Label:       StatusText(raw),
		CurrentClip: firstText(raw, clipKeys),
	}
	if v, ok := firstPresent(raw, fpsKeys); ok {
		if f, ok := toFloat(v); ok && f > 0 {
			snap.FPS = f
		}
	}
	if v, ok := raw[errorKey]; ok && truthy(v) {
		snap.ErrorText = strings.TrimSpace(fmt.Sprint(v))
	}
	return snap
}

// DerivePercent returns the progress of raw as an integer in [0,100].
func DerivePercent(raw host.RawStatus) int {
	v, ok := firstPresent(raw, PercentKeys)
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return clampPercent(f)
}

// DeriveTerminalState classifies raw as running, succeeded or failed.
// Failure words win over success words, so "Cancelled" at 100% is a failure.
func DeriveTerminalState(raw host.RawStatus) State {
	text := strings.ToLower(StatusText(raw))
	if text != "" {
		for _, w := range failureWords {
			if strings.Contains(text, w) {
				return Failed
			}
		}
		for _, w := range successWords {
			if strings.Contains(text, w) {
				return Succeeded
			}
		}
	}
	errValue, hasErr := raw[errorKey]
	if hasErr && truthy(errValue) {
		return Failed
	}
	if DerivePercent(raw) >= 100 {
		return Succeeded
	}
	return Running
}

// StatusText returns the first non-empty status label.
func StatusText(raw host.RawStatus) string {
	return firstText(raw, StatusTextKeys)
}

// DeriveETA returns the remaining time as display text, or "" when unknown.
// Explicit host fields win; otherwise the time is extrapolated linearly from
// elapsed time and percent, assuming constant throughput.
func DeriveETA(raw host.RawStatus, percent int, startedAt, now time.Time) string {
	if v, ok := raw[etaMillisKey]; ok && !blank(v) {
		if ms, ok := toFloat(v); ok && ms > 0 {
			return FormatClock(ms / 1000)
		}
	}
	for _, key := range ETASecondsKeys {
		v, ok := raw[key]
		if !ok || blank(v) {
			continue
		}
		if text, isText := v.(string); isText {
			text = strings.TrimSpace(text)
			if strings.Contains(text, ":") {
				return text
			}
			if secs, err := strconv.ParseFloat(text, 64); err == nil {
				if secs > 0 {
					return FormatClock(secs)
				}
				continue
			}
			return text
		}
		if secs, ok := toFloat(v); ok && secs > 0 {
			return FormatClock(secs)
		}
	}
	if v, ok := raw[etaMinutesKey]; ok && !blank(v) {
		if mins, ok := toFloat(v); ok && mins > 0 {
			return FormatClock(mins * 60)
		}
	}
	if startedAt.IsZero() || percent <= 0 || percent >= 100 {
		return ""
	}
	elapsed := now.Sub(startedAt).Seconds()
	if elapsed <= 0 {
		return ""
	}
	return FormatClock(elapsed * float64(100-percent) / float64(percent))
}

// FormatClock renders seconds as h:mm:ss, or m:ss below one hour.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int64(math.Round(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func clampPercent(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	r := math.Round(f)
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	default:
		return int(r)
	}
}

func firstPresent(raw host.RawStatus, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstText(raw host.RawStatus, keys []string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// blank matches the values hosts use for "no value": nil, "", 0 and "0".
func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || s == "0"
	default:
		f, ok := toFloat(v)
		return ok && f == 0
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && s != "0" && s != "false" && s != "none"
	default:
		f, ok := toFloat(v)
		if ok {
			return f != 0
		}
		return true
	}
}
