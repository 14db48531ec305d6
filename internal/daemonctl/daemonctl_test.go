package daemonctl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"mediasolver/internal/daemonctl"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/testsupport"
)

func fakeDaemon(t *testing.T, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("/api/progress", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error":"unauthorized"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(jobstate.Record{State: jobstate.StateRendering, Percent: 42, ETA: "00:01:00"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientProgress(t *testing.T) {
	srv := fakeDaemon(t, "secret")
	addr := strings.TrimPrefix(srv.URL, "http://")

	client := daemonctl.NewClientForAddress(addr, "secret")
	if !client.Healthy(context.Background()) {
		t.Fatal("expected healthy daemon")
	}
	rec, err := client.Progress(context.Background())
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if rec.State != jobstate.StateRendering || rec.Percent != 42 {
		t.Fatalf("unexpected record %+v", rec)
	}

	_, err = daemonctl.NewClientForAddress(addr, "wrong").Progress(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestClientReportsNotRunning(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := daemonctl.NewClientForAddress(addr, "")
	if client.Healthy(context.Background()) {
		t.Fatal("expected unhealthy daemon")
	}
	if _, err := client.Progress(context.Background()); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestWildcardBindUsesLoopback(t *testing.T) {
	srv := fakeDaemon(t, "")
	_, port, _ := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))

	client := daemonctl.NewClientForAddress("0.0.0.0:"+port, "")
	if !client.Healthy(context.Background()) {
		t.Fatal("expected wildcard bind to resolve to loopback")
	}
}

func TestProcessInfoReadsPIDFile(t *testing.T) {
	srv := fakeDaemon(t, "")
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(4242)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	running, pid := daemonctl.ProcessInfo(context.Background(), cfg)
	if !running || pid != 4242 {
		t.Fatalf("ProcessInfo = %v, %d", running, pid)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.Stop(context.Background(), cfg, 100*time.Millisecond); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestForceKillRefusesOwnProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ForceKillProcess(cfg.PIDPath(), cfg.LockPath(), 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}
