package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stagehand/internal/ipc"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var (
		title       string
		description string
		privacy     string
		latency     string
		startAt     string
		recurring   bool
		days        string
		thumbPath   string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a broadcast with its timed actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			if strings.TrimSpace(startAt) == "" {
				return fmt.Errorf("--at is required")
			}

			loc := time.Local
			if cfg := ctx.configValue(); cfg != nil {
				if l, err := cfg.Location(); err == nil {
					loc = l
				}
			}
			when, err := parseStartTime(startAt, loc)
			if err != nil {
				return err
			}

			var weekdays []int
			if recurring {
				weekdays, err = parseWeekdays(days)
				if err != nil {
					return err
				}
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Schedule(ipc.ScheduleRequest{
					Title:       title,
					Description: description,
					Privacy:     privacy,
					Latency:     latency,
					StartAt:     when,
					Recurring:   recurring,
					Days:        weekdays,
					ThumbPath:   thumbPath,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scheduled broadcast %s (stream %s)\n", resp.BroadcastID, resp.StreamID)
				fmt.Fprintf(out, "Starts %s with %d armed action(s)\n", resp.StartAt.In(loc).Format(time.RFC1123), resp.Actions)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Broadcast title")
	cmd.Flags().StringVar(&description, "description", "", "Broadcast description")
	cmd.Flags().StringVar(&privacy, "privacy", "", "Privacy status (public, unlisted, private)")
	cmd.Flags().StringVar(&latency, "latency", "", "Latency preference (normal, low, ultraLow)")
	cmd.Flags().StringVar(&startAt, "at", "", "Start time (RFC3339 or \"2006-01-02 15:04\" in the configured timezone)")
	cmd.Flags().BoolVar(&recurring, "recurring", false, "Repeat the broadcast weekly")
	cmd.Flags().StringVar(&days, "days", "", "Comma separated weekdays for recurrence (e.g. sun,wed)")
	cmd.Flags().StringVar(&thumbPath, "thumb", "", "Thumbnail image path")

	return cmd
}

// parseStartTime accepts RFC3339 timestamps or a local wall-clock form
// interpreted in the configured timezone.
func parseStartTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if when, err := time.Parse(time.RFC3339, raw); err == nil {
		return when, nil
	}
	if when, err := time.ParseInLocation("2006-01-02 15:04", raw, loc); err == nil {
		return when, nil
	}
	return time.Time{}, fmt.Errorf("parse start time %q: expected RFC3339 or \"2006-01-02 15:04\"", raw)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekdays(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("--days is required for recurring broadcasts")
	}
	seen := make(map[time.Weekday]bool)
	var result []int
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if len(name) > 3 {
			name = name[:3]
		}
		day, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", strings.TrimSpace(part))
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		result = append(result, int(day))
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("--days is required for recurring broadcasts")
	}
	return result, nil
}
