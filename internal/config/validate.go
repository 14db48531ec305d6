package config

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHost(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateHost() error {
	switch c.Host.APIGeneration {
	case "auto", "native", "snake":
	default:
		return fmt.Errorf("host.api_generation must be one of auto, native, snake (got %q)", c.Host.APIGeneration)
	}
	switch c.Host.BridgeNetwork {
	case "tcp":
		if _, _, err := net.SplitHostPort(c.Host.BridgeAddress); err != nil {
			return fmt.Errorf("host.bridge_address %q: %w", c.Host.BridgeAddress, err)
		}
	case "unix":
	default:
		return fmt.Errorf("host.bridge_network must be tcp or unix (got %q)", c.Host.BridgeNetwork)
	}
	if strings.ContainsAny(c.Host.ProjectName, `/\`) {
		return errors.New("host.project_name must not contain path separators")
	}
	return nil
}

func (c *Config) validateTimings() error {
	return ensurePositiveMap(map[string]int{
		"host.init_timeout_ms":       c.Host.InitTimeoutMillis,
		"host.op_timeout_ms":         c.Host.OpTimeoutMillis,
		"host.call_timeout_seconds":  c.Host.CallTimeoutSeconds,
		"host.ready_timeout_seconds": c.Host.ReadyTimeoutSeconds,
		"render.poll_interval_ms":    c.Render.PollIntervalMillis,
		"watch.debounce_seconds":     c.Watch.DebounceSeconds,
	})
}

func (c *Config) validateWatch() error {
	if !c.Watch.Enabled {
		return nil
	}
	if c.Watch.SourceDir == "" {
		return errors.New("watch.source_dir must be set when watch.enabled is true")
	}
	if c.Watch.OutputDir == "" {
		return errors.New("watch.output_dir (or render.output_dir) must be set when watch.enabled is true")
	}
	if c.Watch.Preset == "" {
		return errors.New("watch.preset (or render.default_preset) must be set when watch.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
