package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shelver/internal/activity"
	"shelver/internal/daemon"
	"shelver/internal/ipc"
	"shelver/internal/logging"
	"shelver/internal/retry"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var open bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List files waiting in the review folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := loadReview(ctx)
			if err != nil {
				return err
			}
			if open {
				if err := exec.CommandContext(cmd.Context(), "xdg-open", listing.Dir).Start(); err != nil {
					return fmt.Errorf("open review folder: %w", err)
				}
			}
			if asJSON {
				return writeJSON(cmd, listing)
			}
			out := cmd.OutOrStdout()
			if len(listing.Files) == 0 {
				fmt.Fprintf(out, "Review folder %s is empty\n", listing.Dir)
				return nil
			}
			fmt.Fprintf(out, "%d file(s) in %s\n", len(listing.Files), listing.Dir)
			for _, name := range listing.Files {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "Open the review folder in the file manager")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// loadReview asks the daemon first and reads the folder directly when it is
// not running.
func loadReview(ctx *commandContext) (daemon.ReviewListing, error) {
	if client := ctx.tryClient(); client != nil {
		defer client.Close()
		resp, err := client.Review()
		if err != nil {
			return daemon.ReviewListing{}, err
		}
		return daemon.ReviewListing{Dir: resp.Dir, Files: resp.Files}, nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return daemon.ReviewListing{}, err
	}
	return daemon.ListReview(cfg.Paths.ReviewDir)
}

func newActivityCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent filing activity, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be zero or positive")
			}
			entries, err := loadActivity(cmd.Context(), ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, jsonList(entries))
			}
			renderActivity(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func loadActivity(cmdCtx context.Context, ctx *commandContext, limit int) ([]activity.Entry, error) {
	if client := ctx.tryClient(); client != nil {
		defer client.Close()
		resp, err := client.Activity(limit)
		if err != nil {
			return nil, err
		}
		return resp.Entries, nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewNop()
	store, err := activity.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return activity.NewRecorder(store, nil, logger).Entries(cmdCtx, limit)
}

func renderActivity(out io.Writer, entries []activity.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No activity recorded")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Timestamp.Local().Format(time.DateTime),
			string(entry.Action),
			string(entry.Status),
			entry.Filename,
			activityTarget(entry),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Time", "Action", "Status", "File", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

func activityTarget(entry activity.Entry) string {
	if entry.DestinationPath != "" && entry.Action != activity.ActionUndone {
		return filepath.Dir(entry.DestinationPath)
	}
	return entry.Details
}

func newPendingCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List files waiting to be retried",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pending()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, jsonList(resp.Files))
				}
				renderPending(cmd.OutOrStdout(), resp.Files, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderPending(out io.Writer, files []retry.PendingFile, now time.Time) {
	if len(files) == 0 {
		fmt.Fprintln(out, "No files pending")
		return
	}
	rows := make([][]string, 0, len(files))
	for _, file := range files {
		rows = append(rows, []string{
			filepath.Base(file.Path),
			strconv.Itoa(file.Attempts),
			formatRetryIn(file.NextRetry, now),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Attempts", "Next retry"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
}

func formatRetryIn(next, now time.Time) string {
	if next.IsZero() {
		return "-"
	}
	wait := next.Sub(now)
	if wait <= 0 {
		return "due"
	}
	return "in " + wait.Round(time.Second).String()
}
