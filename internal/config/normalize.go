package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHost()
	if err := c.normalizeRender(); err != nil {
		return err
	}
	c.normalizeIngest()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeLogging()
	return c.normalizeTelemetry()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MEDIASOLVER_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeHost() {
	c.Host.BridgeAddress = strings.TrimSpace(c.Host.BridgeAddress)
	if value, ok := os.LookupEnv("MEDIASOLVER_BRIDGE"); ok && strings.TrimSpace(value) != "" {
		c.Host.BridgeAddress = strings.TrimSpace(value)
	}
	if c.Host.BridgeAddress == "" {
		c.Host.BridgeAddress = defaultBridgeAddress
	}
	c.Host.BridgeNetwork = strings.ToLower(strings.TrimSpace(c.Host.BridgeNetwork))
	if c.Host.BridgeNetwork == "" {
		c.Host.BridgeNetwork = defaultBridgeNetwork
	}
	c.Host.APIGeneration = strings.ToLower(strings.TrimSpace(c.Host.APIGeneration))
	if c.Host.APIGeneration == "" {
		c.Host.APIGeneration = defaultAPIGeneration
	}
	c.Host.Executable = strings.TrimSpace(c.Host.Executable)
	c.Host.ProjectName = strings.TrimSpace(c.Host.ProjectName)
	if c.Host.ProjectName == "" {
		c.Host.ProjectName = defaultProjectName
	}
	if c.Host.ReconcileAttempts <= 0 {
		c.Host.ReconcileAttempts = 1
	}
}

func (c *Config) normalizeRender() error {
	c.Render.DefaultPreset = strings.TrimSpace(c.Render.DefaultPreset)
	c.Render.BinPrefix = strings.TrimSpace(c.Render.BinPrefix)
	c.Render.BinParent = strings.Trim(strings.TrimSpace(c.Render.BinParent), `/\`)
	c.Render.TimelinePrefix = strings.TrimSpace(c.Render.TimelinePrefix)
	if strings.TrimSpace(c.Render.OutputDir) != "" {
		var err error
		if c.Render.OutputDir, err = expandPath(c.Render.OutputDir); err != nil {
			return fmt.Errorf("render.output_dir: %w", err)
		}
	}
	if c.Render.PollIntervalMillis == 0 {
		c.Render.PollIntervalMillis = defaultPollIntervalMillis
	}
	return nil
}

func (c *Config) normalizeIngest() {
	seen := make(map[string]struct{}, len(c.Ingest.Extensions))
	exts := make([]string, 0, len(c.Ingest.Extensions))
	for _, ext := range c.Ingest.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	sort.Strings(exts)
	c.Ingest.Extensions = exts
}

func (c *Config) normalizeWatch() error {
	var err error
	if strings.TrimSpace(c.Watch.SourceDir) != "" {
		if c.Watch.SourceDir, err = expandPath(c.Watch.SourceDir); err != nil {
			return fmt.Errorf("watch.source_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Watch.OutputDir) != "" {
		if c.Watch.OutputDir, err = expandPath(c.Watch.OutputDir); err != nil {
			return fmt.Errorf("watch.output_dir: %w", err)
		}
	}
	c.Watch.Preset = strings.TrimSpace(c.Watch.Preset)
	if c.Watch.Preset == "" {
		c.Watch.Preset = c.Render.DefaultPreset
	}
	if c.Watch.OutputDir == "" {
		c.Watch.OutputDir = c.Render.OutputDir
	}
	if c.Watch.DebounceSeconds == 0 {
		c.Watch.DebounceSeconds = defaultWatchDebounce
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeTelemetry() error {
	if strings.TrimSpace(c.Telemetry.Output) == "" {
		c.Telemetry.Output = ""
		return nil
	}
	var err error
	if c.Telemetry.Output, err = expandPath(c.Telemetry.Output); err != nil {
		return fmt.Errorf("telemetry.output: %w", err)
	}
	return nil
}
