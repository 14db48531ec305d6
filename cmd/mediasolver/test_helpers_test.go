package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mediasolver/internal/config"
	"mediasolver/internal/daemonrun"
	"mediasolver/internal/host/hosttest"
	"mediasolver/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	host       *hosttest.Host
}

// setupCLITestEnv writes a config for a temp tree and routes host access to
// an in-memory host.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	h := hosttest.New()
	t.Cleanup(h.Release)

	prev := newComponents
	newComponents = func(cfg *config.Config, logger *slog.Logger) daemonrun.Components {
		return daemonrun.NewComponentsWithDialer(cfg, h, logger)
	}
	t.Cleanup(func() { newComponents = prev })

	return &cliTestEnv{cfg: cfg, configPath: configPath, host: h}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
