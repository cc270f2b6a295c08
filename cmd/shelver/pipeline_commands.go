package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shelver/internal/activity"
	"shelver/internal/ipc"
	"shelver/internal/workflow"
)

func newPipelineCommands(ctx *commandContext) []*cobra.Command {
	rescanCmd := &cobra.Command{
		Use:   "rescan",
		Short: "Scan the watch directory now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Rescan()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rescan complete: %d file(s) processed\n", resp.Processed)
				return nil
			})
		},
	}

	undoCmd := &cobra.Command{
		Use:   "undo",
		Short: "Move the most recently filed document back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Undo()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeUndo(resp.Result))
				return nil
			})
		},
	}

	var reprocessJSON bool
	reprocessCmd := &cobra.Command{
		Use:   "reprocess <path>",
		Short: "Run one file through the pipeline again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reprocess(args[0])
				if err != nil {
					return err
				}
				if reprocessJSON {
					return writeJSON(cmd, resp.Result)
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeFileResult(resp.Result))
				return nil
			})
		},
	}
	reprocessCmd.Flags().BoolVar(&reprocessJSON, "json", false, "Output as JSON")

	return []*cobra.Command{rescanCmd, undoCmd, reprocessCmd}
}

func describeUndo(result activity.UndoResult) string {
	name := result.Entry.Filename
	if result.Restored {
		return fmt.Sprintf("Restored %s to %s", name, result.Entry.SourcePath)
	}
	reason := strings.TrimSpace(result.Reason)
	if reason == "" {
		reason = "nothing to undo"
	}
	if name == "" {
		return "Nothing undone: " + reason
	}
	return fmt.Sprintf("Could not undo %s: %s", name, reason)
}

func describeFileResult(result workflow.FileResult) string {
	name := filepath.Base(result.Path)
	if result.Skipped {
		reason := result.Reason
		if reason == "" {
			reason = "skipped"
		}
		return fmt.Sprintf("%s: %s", name, reason)
	}
	if result.Entry == nil {
		return fmt.Sprintf("%s: no outcome recorded", name)
	}
	entry := result.Entry
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", name, entry.Action)
	if entry.DestinationPath != "" {
		fmt.Fprintf(&b, " -> %s", entry.DestinationPath)
	}
	if result.Mode != "" {
		fmt.Fprintf(&b, " (%s)", result.Mode)
	}
	if entry.Details != "" {
		fmt.Fprintf(&b, "\n  %s", entry.Details)
	}
	return b.String()
}
