package daemonrun

import (
	"log/slog"

	"mediasolver/internal/config"
	"mediasolver/internal/host"
	"mediasolver/internal/host/bridge"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/reconcile"
)

// ClientName identifies this program to the host bridge.
const ClientName = "mediasolver"

// Components are the host-facing parts shared by the daemon and the one-shot
// CLI commands.
type Components struct {
	Dialer     host.Dialer
	Reconciler *reconcile.Reconciler
	Pipeline   *pipeline.Pipeline
}

// NewComponents builds the bridge dialer, reconciler and pipeline from cfg.
func NewComponents(cfg *config.Config, logger *slog.Logger) Components {
	return NewComponentsWithDialer(cfg, NewDialer(cfg), logger)
}

// NewComponentsWithDialer is NewComponents over an explicit dialer.
func NewComponentsWithDialer(cfg *config.Config, dialer host.Dialer, logger *slog.Logger) Components {
	return Components{
		Dialer: dialer,
		Reconciler: reconcile.New(dialer, reconcile.Options{
			Target:      cfg.Host.ProjectName,
			InitTimeout: cfg.InitTimeout(),
			OpTimeout:   cfg.OpTimeout(),
		}, logger),
		Pipeline: pipeline.New(pipeline.Options{
			Dialer:       dialer,
			CallTimeout:  cfg.CallTimeout(),
			PollInterval: cfg.PollInterval(),
			Logger:       logger,
		}),
	}
}

// NewDialer returns the bridge dialer described by cfg.
func NewDialer(cfg *config.Config) bridge.Dialer {
	return bridge.Dialer{
		Network:    cfg.Host.BridgeNetwork,
		Address:    cfg.Host.BridgeAddress,
		Generation: cfg.Host.APIGeneration,
		ClientName: ClientName,
	}
}

// NewRunner wraps the components' pipeline in a single-run gate.
func (c Components) NewRunner(cfg *config.Config, opts pipeline.RunnerOptions) *pipeline.Runner {
	opts.Pipeline = c.Pipeline
	opts.Reconciler = c.Reconciler
	opts.ReconcileAttempts = cfg.Host.ReconcileAttempts
	return pipeline.NewRunner(opts)
}
