package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"mediasolver/internal/jobstate"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		return statusKindStyle(kind).Render(base)
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindStyle(kind statusKind) lipgloss.Style {
	switch kind {
	case statusOK:
		return okStyle
	case statusWarn:
		return warnStyle
	case statusError:
		return errorStyle
	default:
		return infoStyle
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = headerStyle.Render(line)
		rule = headerStyle.Render(rule)
	}
	return []string{line, rule}
}

// formatProgress renders one job record as a single progress line.
func formatProgress(rec jobstate.Record, colorize bool) string {
	parts := []string{fmt.Sprintf("[%3d%%]", rec.Percent), string(rec.State)}
	if msg := progressMessage(rec); msg != "" {
		parts = append(parts, msg)
	}
	if rec.ETA != "" {
		parts = append(parts, "ETA "+rec.ETA)
	}
	if rec.FPS > 0 {
		parts = append(parts, fmt.Sprintf("%.1f fps", rec.FPS))
	}
	if rec.CurrentClip != "" {
		parts = append(parts, rec.CurrentClip)
	}
	line := strings.Join(parts, "  ")
	if rec.State == jobstate.StateError && rec.Error != "" {
		line += "  " + rec.Error
	}
	if !colorize {
		return line
	}
	switch rec.State {
	case jobstate.StateDone:
		return okStyle.Render(line)
	case jobstate.StateError:
		return errorStyle.Render(line)
	case jobstate.StateIdle:
		return mutedStyle.Render(line)
	default:
		return line
	}
}

func progressMessage(rec jobstate.Record) string {
	if rec.State == jobstate.StateRendering && rec.JobStatus != "" {
		return rec.JobStatus
	}
	return rec.Message
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
