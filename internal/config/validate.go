package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if c.YouTube.TokenPath == "" {
		return errors.New("youtube.token_path must be set")
	}
	switch c.YouTube.DefaultPrivacy {
	case "public", "unlisted", "private":
	default:
		return fmt.Errorf("youtube.default_privacy must be public, unlisted, or private (got %q)", c.YouTube.DefaultPrivacy)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: unknown timezone %q", c.Schedule.Timezone)
	}
	if err := ensurePositiveMap(map[string]int{
		"schedule.heartbeat_interval": c.Schedule.HeartbeatInterval,
		"schedule.watchdog_interval":  c.Schedule.WatchdogInterval,
		"schedule.watchdog_grace":     c.Schedule.WatchdogGrace,
		"schedule.probe_interval":     c.Schedule.ProbeInterval,
		"schedule.go_live_attempts":   c.Schedule.GoLiveAttempts,
	}); err != nil {
		return err
	}
	if c.Schedule.WatchdogInterval >= c.Schedule.HeartbeatInterval+c.Schedule.WatchdogGrace {
		return errors.New("schedule.watchdog_interval must be shorter than heartbeat_interval + watchdog_grace")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
