package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionPolicy describes which per-run log files survive a prune.
type RetentionPolicy struct {
	Dir string
	// Pattern is a filepath.Match glob; empty matches every file.
	Pattern string
	// MaxAge removes files last modified before now-MaxAge. Zero disables
	// age-based pruning.
	MaxAge time.Duration
	// KeepNewest always retains this many of the most recent matches.
	KeepNewest int
	// Protect lists paths that are never removed, such as the active log.
	Protect []string
}

// PruneReport summarizes one PruneLogs pass.
type PruneReport struct {
	Matched int
	Removed []string
	Failed  int
}

type logCandidate struct {
	path    string
	modTime time.Time
}

// PruneLogs applies policy at now and logs a single summary line when
// anything was removed or failed.
func PruneLogs(logger *slog.Logger, policy RetentionPolicy, now time.Time) PruneReport {
	var report PruneReport
	if policy.MaxAge <= 0 {
		return report
	}
	candidates := listCandidates(policy)
	report.Matched = len(candidates)

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})
	cutoff := now.Add(-policy.MaxAge)
	for i, c := range candidates {
		if i < policy.KeepNewest || !c.modTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			report.Failed++
			WarnWithContext(logger, "old log not removed", "log_retention_failed",
				String("path", c.path),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old log file stays on disk"),
				Error(err),
			)
			continue
		}
		report.Removed = append(report.Removed, c.path)
	}

	if logger != nil && (len(report.Removed) > 0 || report.Failed > 0) {
		logger.Info("log retention applied",
			String(FieldEventType, "log_pruned"),
			String("dir", policy.Dir),
			Int("matched", report.Matched),
			Int("removed", len(report.Removed)),
			Int("failed", report.Failed),
		)
	}
	return report
}

func listCandidates(policy RetentionPolicy) []logCandidate {
	dir := strings.TrimSpace(policy.Dir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	protected := make(map[string]struct{}, len(policy.Protect))
	for _, p := range policy.Protect {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			protected[abs] = struct{}{}
		}
	}
	pattern := strings.TrimSpace(policy.Pattern)

	var out []logCandidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if pattern != "" {
			if ok, err := filepath.Match(pattern, name); err != nil || !ok {
				continue
			}
		}
		path, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if _, skip := protected[path]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, logCandidate{path: path, modTime: info.ModTime()})
	}
	return out
}
