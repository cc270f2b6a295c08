package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shelver/internal/activity"
	"shelver/internal/logging"
	"shelver/internal/workflow"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var showText bool
	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Show where a file would be filed, without moving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewNop()
			store, err := activity.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			manager := workflow.NewManager(cfg, store, logger)
			preview, err := manager.Classify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, preview)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:        %s\n", preview.Path)
			fmt.Fprintf(out, "Classifier:  %s\n", preview.Mode)
			if preview.Matched {
				fmt.Fprintf(out, "Rule:        %s (%s)\n", shortID(preview.RuleID), truncate(preview.RulePrompt, 60))
			} else {
				fmt.Fprintln(out, "Rule:        none matched")
			}
			fmt.Fprintf(out, "Destination: %s\n", preview.Destination)
			if showText {
				fmt.Fprintln(out)
				fmt.Fprintln(out, strings.TrimSpace(preview.Text))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showText, "text", false, "Print the extracted text used for classification")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
