package pipeline

import (
	"fmt"
	"time"

	"mediasolver/internal/host"
	"mediasolver/internal/jobstate"
	"mediasolver/internal/logging"
	"mediasolver/internal/renderstatus"
	"mediasolver/internal/services"
)

// renderPercent maps the host's job percent onto the overall scale, where
// everything before rendering accounts for the first 20%.
func renderPercent(raw int) int {
	return max(percentTimeline, min(100, raw))
}

// poll reads the job status until it reaches a terminal state.
func (r *run) poll() error {
	runStart := r.startedAt()
	sampler := logging.NewProgressSampler(10)
	lastPercent := -1
	ticker := time.NewTicker(r.p.pollInterval)
	defer ticker.Stop()

	for {
		raw := r.readStatus()
		now := r.p.now()
		snap := renderstatus.Parse(raw, runStart, now)
		pct := renderPercent(snap.Percent)
		// Extrapolate over the whole run using the percent the user sees.
		snap.ETA = renderstatus.DeriveETA(raw, pct, runStart, now)

		detail := ""
		if snap.State == renderstatus.Failed {
			detail = describeFailure(snap)
		}
		rec := r.update(func(rec *jobstate.Record) {
			if pct != lastPercent {
				rec.Percent = pct
			}
			rec.ETA = snap.ETA
			rec.JobStatus = snap.Label
			rec.FPS = snap.FPS
			rec.CurrentClip = snap.CurrentClip
			switch snap.State {
			case renderstatus.Failed:
				rec.State = jobstate.StateError
				rec.Percent = min(pct, 99)
				rec.Error = detail
				rec.Message = "Render failed"
				rec.ETA = ""
			case renderstatus.Succeeded:
				rec.State = jobstate.StateDone
				rec.Percent = 100
				rec.Message = "Render complete"
				rec.ETA = ""
			}
		})
		lastPercent = pct
		if sampler.ShouldLog(rec.Percent, snap.Label) {
			r.logger.Info("render progress",
				logging.String(logging.FieldEventType, "render_progress"),
				logging.Int("percent", rec.Percent),
				logging.String("eta", snap.ETA),
				logging.String("job_status", snap.Label),
				logging.Float64("fps", snap.FPS),
				logging.String("current_clip", snap.CurrentClip),
			)
		}
		switch snap.State {
		case renderstatus.Failed:
			return services.Wrap(services.ErrExternalTool, "render", "RenderJobStatus", detail, nil)
		case renderstatus.Succeeded:
			return nil
		}

		select {
		case <-r.ctx.Done():
			r.update(func(rec *jobstate.Record) {
				rec.State = jobstate.StateError
				rec.Percent = min(rec.Percent, 99)
				rec.Error = "interrupted"
				rec.Message = "Interrupted"
				rec.ETA = ""
			})
			return services.Wrap(services.ErrTransient, "render", "poll", "interrupted", r.ctx.Err())
		case <-ticker.C:
		}
	}
}

// startedAt is the run's start as recorded by Store.Begin, or now when the
// pipeline runs without a runner.
func (r *run) startedAt() time.Time {
	if rec := r.p.store.Snapshot(); rec.StartedAt != nil {
		return *rec.StartedAt
	}
	return r.p.now()
}

// readStatus returns an empty status when the host cannot answer, which the
// normalizer classifies as still running.
func (r *run) readStatus() host.RawStatus {
	raw, err := call(r, "RenderJobStatus", func() (host.RawStatus, error) {
		return r.project.RenderJobStatus(r.jobID)
	})
	if err != nil {
		r.warn("render status unavailable", "render_status_failed", "progress may lag until the host responds",
			logging.String("job_id", r.jobID), logging.Error(err))
		return host.RawStatus{}
	}
	if raw == nil {
		return host.RawStatus{}
	}
	return raw
}

func describeFailure(snap renderstatus.Snapshot) string {
	label := snap.Label
	if label == "" {
		label = "failed"
	}
	if snap.ErrorText != "" {
		return fmt.Sprintf("render job %s: %s", label, snap.ErrorText)
	}
	return "render job " + label
}
