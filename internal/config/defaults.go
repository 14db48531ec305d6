package config

const (
	defaultConfigPath          = "~/.config/mediasolver/config.toml"
	defaultStateDir            = "~/.local/share/mediasolver"
	defaultLogDir              = "~/.local/share/mediasolver/logs"
	defaultAPIBind             = "127.0.0.1:17209"
	defaultBridgeAddress       = "127.0.0.1:17300"
	defaultBridgeNetwork       = "tcp"
	defaultAPIGeneration       = "auto"
	defaultProjectName         = "MediaSolver"
	defaultInitTimeoutMillis   = 4000
	defaultOpTimeoutMillis     = 750
	defaultCallTimeoutSeconds  = 120
	defaultReadyTimeoutSeconds = 120
	defaultReconcileAttempts   = 2
	defaultBinPrefix           = "INGEST_"
	defaultPollIntervalMillis  = 500
	defaultWatchDebounce       = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

var defaultExtensions = []string{".mp4", ".mov", ".mxf", ".mkv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Host: Host{
			BridgeAddress:       defaultBridgeAddress,
			BridgeNetwork:       defaultBridgeNetwork,
			APIGeneration:       defaultAPIGeneration,
			ProjectName:         defaultProjectName,
			InitTimeoutMillis:   defaultInitTimeoutMillis,
			OpTimeoutMillis:     defaultOpTimeoutMillis,
			CallTimeoutSeconds:  defaultCallTimeoutSeconds,
			ReadyTimeoutSeconds: defaultReadyTimeoutSeconds,
			ReconcileAttempts:   defaultReconcileAttempts,
		},
		Render: Render{
			BinPrefix:          defaultBinPrefix,
			UniqueFilename:     true,
			PollIntervalMillis: defaultPollIntervalMillis,
		},
		Ingest: Ingest{
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Watch: Watch{
			DebounceSeconds: defaultWatchDebounce,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
