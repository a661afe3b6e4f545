package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stagehand/internal/ipc"
)

func newActionsCommand(ctx *commandContext) *cobra.Command {
	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "Inspect and manage timed actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActionsList(ctx, cmd, "")
		},
	}

	var listBroadcast string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List armed actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActionsList(ctx, cmd, listBroadcast)
		},
	}
	listCmd.Flags().StringVar(&listBroadcast, "broadcast", "", "Only show actions for this broadcast")

	actionsCmd.AddCommand(listCmd)
	actionsCmd.AddCommand(newActionAddCommand(ctx))
	actionsCmd.AddCommand(newActionRemoveCommand(ctx))

	return actionsCmd
}

func runActionsList(ctx *commandContext, cmd *cobra.Command, broadcastID string) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.ActionsList(broadcastID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(resp.Actions) == 0 {
			fmt.Fprintln(out, "No armed actions")
			return nil
		}
		rows := make([][]string, 0, len(resp.Actions))
		for _, a := range resp.Actions {
			rows = append(rows, []string{
				a.ID,
				a.BroadcastID,
				a.Kind,
				a.At.Local().Format(time.RFC1123),
				a.SceneName,
			})
		}
		fmt.Fprintln(out, renderTable([]string{"ID", "Broadcast", "Kind", "Fires at", "Scene"}, rows))
		return nil
	})
}

func newActionAddCommand(ctx *commandContext) *cobra.Command {
	var (
		broadcastID string
		kind        string
		at          string
		sceneName   string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Arm a new timed action",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(broadcastID) == "" {
				return fmt.Errorf("--broadcast is required")
			}
			if strings.TrimSpace(kind) == "" {
				return fmt.Errorf("--kind is required")
			}
			if strings.TrimSpace(at) == "" {
				return fmt.Errorf("--at is required")
			}

			loc := time.Local
			if cfg := ctx.configValue(); cfg != nil {
				if l, err := cfg.Location(); err == nil {
					loc = l
				}
			}
			when, err := parseStartTime(at, loc)
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ActionAdd(ipc.ActionAddRequest{
					BroadcastID: broadcastID,
					Kind:        kind,
					At:          when,
					SceneName:   sceneName,
				})
				if err != nil {
					return err
				}
				action := resp.Action
				fmt.Fprintf(cmd.OutOrStdout(), "Armed %s action %s at %s\n", action.Kind, action.ID, action.At.In(loc).Format(time.RFC1123))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&broadcastID, "broadcast", "", "Broadcast the action belongs to")
	cmd.Flags().StringVar(&kind, "kind", "", "Action kind (start, setScene, end)")
	cmd.Flags().StringVar(&at, "at", "", "Fire time (RFC3339 or \"2006-01-02 15:04\" in the configured timezone)")
	cmd.Flags().StringVar(&sceneName, "scene", "", "Scene name for setScene actions")

	return cmd
}

func newActionRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <action-id>",
		Short: "Disarm and delete an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ActionRemove(args[0])
				if err != nil {
					return err
				}
				if !resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Action %s was not found\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed action %s\n", args[0])
				return nil
			})
		},
	}
}
