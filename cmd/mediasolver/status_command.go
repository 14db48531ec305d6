package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasolver/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the host bridge, directories and daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			results := preflight.RunAll(cmd.Context(), cfg)
			if jsonOutput {
				return writeJSON(cmd, statusPayload(results))
			}

			stdout := cmd.OutOrStdout()
			for _, line := range renderSectionHeader("MediaSolver Status", shouldColorize(stdout)) {
				fmt.Fprintln(stdout, line)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, checkLabel(r), r.Detail})
			}
			fmt.Fprint(stdout, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if preflight.Failed(results) {
				fmt.Fprintln(stdout, "Some checks failed; renders may not start until they pass.")
			}
			return nil
		},
	}
	addJSONFlag(cmd, &jsonOutput, "check results")
	return cmd
}

func checkLabel(r preflight.Result) string {
	if r.Passed {
		return statusKindLabel(statusOK)
	}
	return statusKindLabel(statusError)
}

type statusCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func statusPayload(results []preflight.Result) []statusCheck {
	out := make([]statusCheck, 0, len(results))
	for _, r := range results {
		out = append(out, statusCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}
