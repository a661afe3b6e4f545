package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stagehand/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
				runningKind := statusWarn
				if status.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
				fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Timezone", statusInfo, status.Timezone, colorize))
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockPath, colorize))

				fmt.Fprintln(out, renderSectionHeader("Clock", colorize))
				clockKind := statusWarn
				if status.ClockRunning {
					clockKind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Clock running", clockKind, yesNo(status.ClockRunning), colorize))
				heartbeatKind := statusOK
				heartbeatNote := "fresh"
				if status.HeartbeatStale {
					heartbeatKind = statusWarn
					heartbeatNote = "stale"
				}
				fmt.Fprintln(out, renderStatusLine("Heartbeat", heartbeatKind, heartbeatNote, colorize))
				last := "never"
				if !status.LastHeartbeat.IsZero() {
					last = status.LastHeartbeat.Local().Format(time.RFC3339)
				}
				fmt.Fprintln(out, renderStatusLine("Last heartbeat", statusInfo, last, colorize))

				fmt.Fprintln(out, renderSectionHeader("Actions", colorize))
				fmt.Fprintln(out, renderStatusLine("Pending", statusInfo, fmt.Sprintf("%d", status.PendingActions), colorize))
				return nil
			})
		},
	}
}
