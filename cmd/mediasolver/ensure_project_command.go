package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediasolver/internal/reconcile"
)

func newEnsureProjectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ensure-project [NAME]",
		Short: "Make NAME (or host.project_name) the host's active project",
		Long: "Ensure-project opens, creates or renames the target project and exits with a\n" +
			"status code: 0 OK, 3 host off or no project manager, 4 unresponsive,\n" +
			"5 close failed, 6 create failed, 7 load failed, 8 other error.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := ""
			if len(args) == 1 {
				target = strings.TrimSpace(args[0])
			}

			components := ctx.components()
			out := components.Reconciler.EnsureWithRetry(cmd.Context(), target, cfg.Host.ReconcileAttempts)

			if jsonOutput {
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
			} else {
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, renderStatusLine(out.Target, outcomeKind(out), outcomeDetail(out), shouldColorize(stdout)))
			}
			if code := out.Status.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	addJSONFlag(cmd, &jsonOutput, "the outcome")
	return cmd
}

func outcomeKind(out reconcile.Outcome) statusKind {
	switch {
	case out.OK:
		return statusOK
	case out.Status == reconcile.StatusAppOff, out.Status == reconcile.StatusNoPM:
		return statusWarn
	default:
		return statusError
	}
}

func outcomeDetail(out reconcile.Outcome) string {
	detail := string(out.Status)
	if out.OK {
		detail += " " + string(out.Kind)
	}
	if out.Details != "" {
		detail += ": " + out.Details
	}
	return detail
}
