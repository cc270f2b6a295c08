package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shelver/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test message to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					if resp != nil && resp.Message != "" {
						fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
					}
					return err
				}
				if resp == nil {
					return errors.New("daemon returned no notification result")
				}
				fmt.Fprintln(cmd.OutOrStdout(), notifySummary(resp))
				return nil
			})
		},
	}
}

// notifySummary prefers the daemon's own wording; it explains why nothing
// was sent, such as a missing ntfy topic.
func notifySummary(resp *ipc.TestNotificationResponse) string {
	switch {
	case resp.Message != "":
		return resp.Message
	case resp.Sent:
		return "Test notification published to ntfy"
	default:
		return "No notification published; set notifications.ntfy_topic"
	}
}
