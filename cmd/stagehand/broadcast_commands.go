package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stagehand/internal/ipc"
)

func newBroadcastsCommand(ctx *commandContext) *cobra.Command {
	broadcastsCmd := &cobra.Command{
		Use:   "broadcasts",
		Short: "Inspect and manage upcoming broadcasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcastsList(ctx, cmd)
		},
	}

	broadcastsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List upcoming broadcasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcastsList(ctx, cmd)
		},
	})
	broadcastsCmd.AddCommand(newBroadcastDeleteCommand(ctx))

	return broadcastsCmd
}

func runBroadcastsList(ctx *commandContext, cmd *cobra.Command) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.Broadcasts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(resp.Broadcasts) == 0 {
			fmt.Fprintln(out, "No upcoming broadcasts")
			return nil
		}
		rows := make([][]string, 0, len(resp.Broadcasts))
		for _, b := range resp.Broadcasts {
			rows = append(rows, []string{
				b.ID,
				b.Title,
				b.Status,
				b.ScheduledStart.Local().Format(time.RFC1123),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Status", "Scheduled start"}, rows))
		return nil
	})
}

func newBroadcastDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <broadcast-id>",
		Short: "Delete a broadcast and its armed actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BroadcastDelete(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted broadcast %s (%d local action(s) removed)\n", args[0], resp.ActionsRemoved)
				return nil
			})
		},
	}
}
