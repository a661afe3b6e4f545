package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeYouTube(); err != nil {
		return err
	}
	c.normalizeOBS()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeYouTube() error {
	var err error
	if strings.TrimSpace(c.YouTube.TokenPath) == "" {
		c.YouTube.TokenPath = defaultTokenPath
	}
	if c.YouTube.TokenPath, err = expandPath(c.YouTube.TokenPath); err != nil {
		return fmt.Errorf("youtube.token_path: %w", err)
	}
	if strings.TrimSpace(c.YouTube.CredentialsPath) == "" {
		c.YouTube.CredentialsPath = defaultCredentialsPath
	}
	if c.YouTube.CredentialsPath, err = expandPath(c.YouTube.CredentialsPath); err != nil {
		return fmt.Errorf("youtube.credentials_path: %w", err)
	}
	c.YouTube.DefaultPrivacy = strings.ToLower(strings.TrimSpace(c.YouTube.DefaultPrivacy))
	if c.YouTube.DefaultPrivacy == "" {
		c.YouTube.DefaultPrivacy = defaultPrivacy
	}
	if c.YouTube.RequestTimeout <= 0 {
		c.YouTube.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

func (c *Config) normalizeOBS() {
	c.OBS.Address = strings.TrimSpace(c.OBS.Address)
	if c.OBS.Address == "" {
		c.OBS.Address = defaultOBSAddress
	}
	if c.OBS.Password == "" {
		if value, ok := os.LookupEnv("OBS_WEBSOCKET_PASSWORD"); ok {
			c.OBS.Password = value
		}
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultTimezone
	}
	if c.Schedule.HeartbeatInterval <= 0 {
		c.Schedule.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Schedule.WatchdogInterval <= 0 {
		c.Schedule.WatchdogInterval = defaultWatchdogInterval
	}
	if c.Schedule.WatchdogGrace <= 0 {
		c.Schedule.WatchdogGrace = defaultWatchdogGrace
	}
	if c.Schedule.ProbeInterval <= 0 {
		c.Schedule.ProbeInterval = defaultProbeInterval
	}
	if c.Schedule.CleanupInterval < 0 {
		c.Schedule.CleanupInterval = 0
	}
	if c.Schedule.GoLiveAttempts <= 0 {
		c.Schedule.GoLiveAttempts = defaultGoLiveAttempts
	}
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
}
