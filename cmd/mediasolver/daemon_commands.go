package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mediasolver/internal/daemonctl"
	"mediasolver/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the background render service",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), ctx.configValue(), exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				LogLevel:   ctx.logLevel(),
			}, 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			default:
				fmt.Fprintf(stdout, "Daemon started on %s\n", ctx.configValue().Paths.APIBind)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon, interrupting any active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cmd.Context(), ctx.configValue(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, host and run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			running, pid := daemonctl.ProcessInfo(cmd.Context(), cfg)
			if !running {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
				return nil
			}
			detail := "Running on " + cfg.Paths.APIBind
			if pid > 0 {
				detail = fmt.Sprintf("%s (pid %d)", detail, pid)
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, detail, colorize))

			client := daemonctl.NewClient(cfg)
			host, err := client.HostStatus(cmd.Context())
			switch {
			case err != nil:
				fmt.Fprintln(stdout, renderStatusLine("Host", statusError, err.Error(), colorize))
			case host.HostRunning:
				fmt.Fprintln(stdout, renderStatusLine("Host", statusOK, "Reachable from "+host.Hostname, colorize))
			default:
				fmt.Fprintln(stdout, renderStatusLine("Host", statusWarn, "Not running", colorize))
			}
			if err == nil && host.LastCheck != nil {
				fmt.Fprintln(stdout, renderStatusLine("Project", outcomeKind(*host.LastCheck), outcomeDetail(*host.LastCheck), colorize))
			}
			rec, err := client.Progress(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Current Run", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, formatProgress(rec, colorize))
			return nil
		},
	}

	var development bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.logLevel(),
				Development: development,
			})
		},
	}
	runCmd.Flags().BoolVar(&development, "development", false, "Include source locations in log records")

	daemonCmd.AddCommand(startCmd, stopCmd, statusCmd, runCmd)
	return daemonCmd
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}
