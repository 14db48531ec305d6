package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediasolver/internal/services"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List render presets of the host's current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := ctx.components().Pipeline.Presets(cmd.Context())
			if err != nil {
				return fmt.Errorf("list presets: %s", services.Detail(err))
			}
			if jsonOutput {
				if presets == nil {
					presets = []string{}
				}
				return writeJSON(cmd, presets)
			}
			stdout := cmd.OutOrStdout()
			if len(presets) == 0 {
				fmt.Fprintln(stdout, "The current project has no render presets")
				return nil
			}
			rows := make([][]string, 0, len(presets))
			for i, name := range presets {
				rows = append(rows, []string{strconv.Itoa(i + 1), name})
			}
			fmt.Fprint(stdout, renderTable([]string{"#", "Preset"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
	addJSONFlag(cmd, &jsonOutput, "presets")
	return cmd
}
