package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mediasolver/internal/history"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/pipeline"
	"mediasolver/internal/services"
)

type renderFlags struct {
	source           string
	preset           string
	recursive        bool
	binParent        string
	binPrefix        string
	timelinePrefix   string
	allowStills      bool
	fps              float64
	width            int
	height           int
	outputDir        string
	name             string
	unique           bool
	single           bool
	format           string
	codec            string
	project          string
	skipProjectCheck bool
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Import a folder, build a timeline and render it",
		Long: "Render runs the full pipeline once in the foreground: media in --src is imported\n" +
			"into a new bin, assembled into a timeline in name order, and rendered with --preset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := flags.request(cmd, pipeline.NewRequest(cfg))
			if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Preset) == "" {
				_ = cmd.Usage()
				return &exitError{code: 2, err: errors.New("render: --src and --preset are required")}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := ctx.logger()
			opts := pipeline.RunnerOptions{Logger: logger}
			if store, err := history.Open(cfg); err != nil {
				logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
					logging.String(logging.FieldImpact, "this run will not appear in `mediasolver history`"),
					logging.Error(err),
				)
			} else {
				defer store.Close()
				opts.History = store
			}
			components := ctx.components()
			runner := components.NewRunner(cfg, opts)

			out := cmd.OutOrStdout()
			runner.Store().Observe(newProgressPrinter(out, shouldColorize(out)))

			res, err := runner.RunSync(runCtx, req)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return &exitError{code: 130, err: errors.New("render interrupted")}
				}
				return &exitError{code: 1, err: fmt.Errorf("render failed: %s", services.Detail(err))}
			}
			fmt.Fprintf(out, "Rendered %d clips from bin %s on timeline %s (job %s)\n",
				res.ClipCount, res.BinName, res.Timeline, res.JobID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.source, "src", "", "Folder of media to import (required)")
	f.StringVar(&flags.preset, "preset", "", "Render preset name (defaults to render.default_preset)")
	f.BoolVar(&flags.recursive, "recursive", false, "Include media in subfolders")
	f.StringVar(&flags.binParent, "bin-parent", "", `Existing media pool folder path for the new bin, e.g. "Dailies\Day01"`)
	f.StringVar(&flags.binPrefix, "bin-prefix", "", "Prefix of the timestamped bin name")
	f.StringVar(&flags.timelinePrefix, "tl-prefix", "", "Prefix of the timeline name (defaults to the bin name)")
	f.BoolVar(&flags.allowStills, "allow-stills", false, "Import still images as well as video")
	f.Float64Var(&flags.fps, "fps", 0, "Timeline frame rate when the project has no timeline yet")
	f.IntVar(&flags.width, "width", 0, "Timeline and render width")
	f.IntVar(&flags.height, "height", 0, "Timeline and render height")
	f.StringVar(&flags.outputDir, "outdir", "", "Render target directory (defaults to render.output_dir)")
	f.StringVar(&flags.name, "name", "", "Custom output file name")
	f.BoolVar(&flags.unique, "unique", false, "Ask the host for unique output file names")
	f.BoolVar(&flags.single, "single", false, "Render the timeline as a single clip")
	f.StringVar(&flags.format, "format", "", "Render container format override")
	f.StringVar(&flags.codec, "codec", "", "Render codec override")
	f.StringVar(&flags.project, "project", "", "Project to reconcile before rendering (defaults to host.project_name)")
	f.BoolVar(&flags.skipProjectCheck, "skip-project-check", false, "Render into whatever project is open")
	return cmd
}

// request overlays explicitly set flags on the configured defaults.
func (f renderFlags) request(cmd *cobra.Command, req pipeline.Request) pipeline.Request {
	changed := cmd.Flags().Changed
	req.Source = strings.TrimSpace(f.source)
	req.Trigger = pipeline.TriggerCLI
	if changed("preset") {
		req.Preset = strings.TrimSpace(f.preset)
	}
	if changed("recursive") {
		req.Recursive = f.recursive
	}
	if changed("bin-parent") {
		req.BinParent = f.binParent
	}
	if changed("bin-prefix") {
		req.BinPrefix = f.binPrefix
	}
	if changed("tl-prefix") {
		req.TimelinePrefix = f.timelinePrefix
	}
	if changed("allow-stills") {
		req.IncludeStills = f.allowStills
	}
	if changed("outdir") {
		req.OutputDir = f.outputDir
	}
	if changed("unique") {
		req.Unique = f.unique
	}
	if changed("project") {
		req.Project = f.project
	}
	req.FPS = f.fps
	req.Width = f.width
	req.Height = f.height
	req.CustomName = f.name
	req.SingleClip = f.single
	req.Format = f.format
	req.Codec = f.codec
	req.SkipProjectCheck = f.skipProjectCheck
	return req
}

// newProgressPrinter prints a line whenever the visible progress changes.
func newProgressPrinter(out io.Writer, colorize bool) func(jobstate.Record) {
	var last string
	return func(rec jobstate.Record) {
		key := fmt.Sprintf("%s|%d|%s|%s", rec.State, rec.Percent, progressMessage(rec), rec.Error)
		if key == last {
			return
		}
		last = key
		fmt.Fprintln(out, formatProgress(rec, colorize))
	}
}
