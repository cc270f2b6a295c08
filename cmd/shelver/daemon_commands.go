package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shelver/internal/daemonctl"
	"shelver/internal/workflow"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the shelver daemon and folder monitoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Monitoring started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Monitoring already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	var monitoringOnly bool
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the shelver daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			if monitoringOnly {
				err := daemonctl.PauseMonitoring(ctx.socketPath())
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(stdout, "Daemon is not running")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Monitoring stopped; daemon still running")
				return nil
			}

			result, err := daemonctl.StopAndTerminate(ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
	stopCmd.Flags().BoolVar(&monitoringOnly, "monitoring-only", false, "Stop folder monitoring but keep the daemon running")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, classifier, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snapshot)
			}
			renderStatus(cmd.OutOrStdout(), snapshot, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderStatus(out io.Writer, snapshot *daemonctl.StatusSnapshot, colorize bool) {
	status := snapshot.Status
	summary := status.Workflow

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if !snapshot.DaemonRunning {
		fmt.Fprintln(out, renderStatusLine("Shelver", statusWarn, "Not running (run `shelver start`)", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Shelver", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
		if status.Running {
			fmt.Fprintln(out, renderStatusLine("Monitoring", statusOK, summary.WatchDir, colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine("Monitoring", statusWarn, "Stopped", colorize))
		}
		fmt.Fprintln(out, renderStatusLine("Classifier", classifierKind(summary), classifierDetail(summary), colorize))
		fmt.Fprintln(out, renderStatusLine("Pending retries", statusInfo, fmt.Sprintf("%d", summary.Pending), colorize))
		fmt.Fprintln(out, renderStatusLine("Fallback decisions", statusInfo, fmt.Sprintf("%d awaiting replay", summary.FallbackRecords), colorize))
		if !summary.LastScan.IsZero() {
			fmt.Fprintln(out, renderStatusLine("Last scan", statusInfo, summary.LastScan.Local().Format(time.DateTime), colorize))
		}
		if summary.LastError != "" {
			fmt.Fprintln(out, renderStatusLine("Last error", statusError, summary.LastError, colorize))
		}
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range snapshot.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}
}

func classifierKind(summary workflow.StatusSummary) statusKind {
	switch summary.Classifier {
	case "ready":
		return statusOK
	case "failed":
		return statusError
	case workflow.ClassifierKeywordOnly:
		return statusInfo
	default:
		return statusWarn
	}
}

func classifierDetail(summary workflow.StatusSummary) string {
	detail := summary.Classifier
	if summary.Classifier == workflow.ClassifierKeywordOnly {
		detail = "keyword matching only (no LLM key)"
	}
	if summary.ClassifierError != "" {
		detail += ": " + summary.ClassifierError
	}
	return detail
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		LogLevel:   ctx.logLevel(),
	}
}
