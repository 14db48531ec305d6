package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediasolver/internal/logging"
)

func writeAged(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestPruneLogsRemovesExpiredMatches(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := writeAged(t, dir, "mediasolver-20260101.log", now.AddDate(0, 0, -40))
	fresh := writeAged(t, dir, "mediasolver-20260228.log", now.AddDate(0, 0, -1))
	other := writeAged(t, dir, "notes.txt", now.AddDate(0, 0, -90))

	report := logging.PruneLogs(logging.NewNop(), logging.RetentionPolicy{
		Dir:     dir,
		Pattern: "mediasolver-*.log",
		MaxAge:  30 * 24 * time.Hour,
	}, now)

	if report.Matched != 2 || len(report.Removed) != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", old, err)
	}
	for _, kept := range []string{fresh, other} {
		if _, err := os.Stat(kept); err != nil {
			t.Fatalf("expected %s kept: %v", kept, err)
		}
	}
}

func TestPruneLogsKeepsNewestAndProtected(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := writeAged(t, dir, "mediasolver-a.log", now.AddDate(0, 0, -50))
	b := writeAged(t, dir, "mediasolver-b.log", now.AddDate(0, 0, -60))
	c := writeAged(t, dir, "mediasolver-c.log", now.AddDate(0, 0, -70))

	report := logging.PruneLogs(nil, logging.RetentionPolicy{
		Dir:        dir,
		Pattern:    "mediasolver-*.log",
		MaxAge:     24 * time.Hour,
		KeepNewest: 1,
		Protect:    []string{c},
	}, now)

	if len(report.Removed) != 1 || report.Removed[0] != b {
		t.Fatalf("expected only %s removed, got %+v", b, report.Removed)
	}
	for _, kept := range []string{a, c} {
		if _, err := os.Stat(kept); err != nil {
			t.Fatalf("expected %s kept: %v", kept, err)
		}
	}
}

func TestPruneLogsDisabledWithoutMaxAge(t *testing.T) {
	dir := t.TempDir()
	path := writeAged(t, dir, "mediasolver-x.log", time.Unix(0, 0))
	report := logging.PruneLogs(nil, logging.RetentionPolicy{Dir: dir}, time.Now())
	if report.Matched != 0 || len(report.Removed) != 0 {
		t.Fatalf("expected no-op, got %+v", report)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should remain: %v", err)
	}
}
