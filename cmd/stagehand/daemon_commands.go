package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagehand/internal/ipc"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge local state for broadcasts that no longer exist upstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cleanup()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !resp.ActiveFetchOK {
					fmt.Fprintln(out, "Warning: upstream broadcast listing failed; nothing was purged")
					return nil
				}
				fmt.Fprintf(out, "Checked against %d upstream broadcast(s)\n", resp.ValidBroadcasts)
				fmt.Fprintf(out, "Purged %d orphaned action(s) and %d recurrence rule(s)\n", resp.ActionsPurged, resp.RulesPurged)
				return nil
			})
		},
	}
}

func newClockCommand(ctx *commandContext) *cobra.Command {
	clockCmd := &cobra.Command{
		Use:   "clock",
		Short: "Manage the heartbeat clock driver",
	}

	clockCmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the heartbeat clock driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ClockRestart(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Clock driver restarted")
				return nil
			})
		},
	})

	return clockCmd
}

func newGoLiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "golive <broadcast-id>",
		Short: "Run the testing to live transition for a broadcast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.GoLive(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Live transition started for broadcast %s\n", args[0])
				return nil
			})
		},
	}
}
