package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plaques2gallery/internal/daemonrun"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *daemonrun.Runtime) error {
				sent, message, err := rt.Daemon.TestNotification(cmd.Context())
				if err != nil {
					if message != "" {
						fmt.Fprintln(cmd.OutOrStdout(), message)
					}
					return err
				}
				switch {
				case message != "":
					fmt.Fprintln(cmd.OutOrStdout(), message)
				case sent:
					fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
				}
				return nil
			})
		},
	}
}
