package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediasolver/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckExecutable(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "launch.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckExecutable("launcher", script); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckExecutable("launcher", plain); result.Passed {
		t.Fatal("expected failure for non-executable file")
	}
	if result := CheckExecutable("launcher", dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
}

func TestCheckBridge_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Host.BridgeAddress = addr
	result := CheckBridge(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for closed port")
	}
	if !strings.Contains(result.Detail, "not reachable") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckBridge_SilentPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		ln.Close()
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				<-done
				conn.Close()
			}()
		}
	}()

	cfg := testsupport.NewConfig(t)
	cfg.Host.BridgeAddress = ln.Addr().String()
	cfg.Host.InitTimeoutMillis = 200
	result := CheckBridge(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for a peer that never answers hello")
	}
}

func TestRunAllSkipsUnconfiguredFeatures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Host.BridgeAddress = ""
	cfg.Host.Executable = ""
	cfg.Watch.Enabled = false
	cfg.Render.OutputDir = ""

	results := RunAll(context.Background(), cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := []string{"Host bridge", "State directory", "Log directory", "Daemon"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("checks = %v, want %v", names, want)
	}
	if !Failed(results) {
		t.Fatal("missing bridge address should fail")
	}
}
