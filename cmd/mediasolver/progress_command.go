package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediasolver/internal/daemonctl"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var follow bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the progress of the daemon's current render run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := daemonctl.NewClient(ctx.configValue())
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			printer := newProgressPrinter(stdout, colorize)

			for {
				rec, err := client.Progress(cmd.Context())
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					return errors.New("daemon is not running; start it with `mediasolver daemon start`")
				}
				if err != nil {
					return err
				}
				switch {
				case jsonOutput && follow:
					if err := writeJSONLine(cmd, rec); err != nil {
						return err
					}
				case jsonOutput:
					if err := writeJSON(cmd, rec); err != nil {
						return err
					}
				case follow:
					printer(rec)
				default:
					fmt.Fprintln(stdout, formatProgress(rec, colorize))
				}
				if !follow || !rec.State.Active() {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(interval):
				}
			}
		},
	}
	addJSONFlag(cmd, &jsonOutput, "the job record (one line per poll with --follow)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling until the run finishes")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval with --follow")
	return cmd
}
