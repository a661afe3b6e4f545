package config

const (
	defaultDataDir           = "~/.local/share/stagehand"
	defaultLogDir            = "~/.local/share/stagehand/logs"
	defaultAPIBind           = "127.0.0.1:7512"
	defaultTokenPath         = "~/.config/stagehand/token.json"
	defaultCredentialsPath   = "~/.config/stagehand/credentials.json"
	defaultPrivacy           = "public"
	defaultRequestTimeout    = 30
	defaultOBSAddress        = "localhost:4455"
	defaultTimezone          = "America/New_York"
	defaultHeartbeatInterval = 30
	defaultWatchdogInterval  = 10
	defaultWatchdogGrace     = 60
	defaultProbeInterval     = 60
	defaultCleanupInterval   = 0
	defaultGoLiveAttempts    = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		YouTube: YouTube{
			TokenPath:       defaultTokenPath,
			CredentialsPath: defaultCredentialsPath,
			DefaultPrivacy:  defaultPrivacy,
			RequestTimeout:  defaultRequestTimeout,
		},
		OBS: OBS{
			Address: defaultOBSAddress,
		},
		Schedule: Schedule{
			Timezone:          defaultTimezone,
			HeartbeatInterval: defaultHeartbeatInterval,
			WatchdogInterval:  defaultWatchdogInterval,
			WatchdogGrace:     defaultWatchdogGrace,
			ProbeInterval:     defaultProbeInterval,
			CleanupInterval:   defaultCleanupInterval,
			GoLiveAttempts:    defaultGoLiveAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
