package daemonrun_test

import (
	"testing"

	"mediasolver/internal/daemonrun"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/testsupport"
)

func TestNewDialerUsesHostConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Host.BridgeAddress = "127.0.0.1:9999"
	cfg.Host.BridgeNetwork = "tcp"
	cfg.Host.APIGeneration = "snake"

	d := daemonrun.NewDialer(cfg)
	if d.Address != "127.0.0.1:9999" || d.Network != "tcp" || d.Generation != "snake" {
		t.Fatalf("unexpected dialer %+v", d)
	}
	if d.ClientName != daemonrun.ClientName {
		t.Fatalf("client name = %q", d.ClientName)
	}
}

func TestNewComponentsTargetsConfiguredProject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Host.ProjectName = "Dailies"

	c := daemonrun.NewComponents(cfg, logging.NewNop())
	if c.Reconciler.Target() != "Dailies" {
		t.Fatalf("reconciler target = %q", c.Reconciler.Target())
	}
	runner := c.NewRunner(cfg, pipeline.RunnerOptions{Logger: logging.NewNop()})
	if runner.Pipeline() != c.Pipeline {
		t.Fatal("runner does not wrap the shared pipeline")
	}
	if runner.Store().Snapshot().State != jobstate.StateIdle {
		t.Fatalf("fresh runner state = %q", runner.Store().Snapshot().State)
	}
}
