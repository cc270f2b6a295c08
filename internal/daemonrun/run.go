package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"shelver/internal/activity"
	"shelver/internal/config"
	"shelver/internal/daemon"
	"shelver/internal/daemonctl"
	"shelver/internal/ipc"
	"shelver/internal/logging"
	"shelver/internal/notifications"
	"shelver/internal/preflight"
	"shelver/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the shelver daemon and blocks until a signal or a shutdown
// request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shelver-%s.log", runID))
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String("session_id", sessionID))

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shelver.log link: %v\n", err)
	}
	if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "shelver-*.log", logPath); removed > 0 {
		logger.Info("old logs pruned", logging.Int("removed", removed))
	}
	logDependencySnapshot(logger, cfg)

	store, err := activity.Open(cfg, logger)
	if err != nil {
		logger.Error("open activity store", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(cfg, store, logger, workflow.WithNotifier(notifier))

	d, err := daemon.New(cfg, store, logger, manager,
		daemon.WithLogPath(logPath),
		daemon.WithSessionID(sessionID),
		daemon.WithNotifier(notifier),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := daemonctl.WritePIDFile(cfg.PIDPath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.PIDPath())

	if err := d.Serve(signalCtx); err != nil {
		logging.WarnWithContext(logger, "api server unavailable", "api_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [api].bind in the config"),
			logging.String(logging.FieldImpact, "HTTP status and /metrics are not served"),
		)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger, ipc.WithShutdown(cancel))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "monitoring start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the watch directory exists and is readable, then run shelver start"),
			logging.String(logging.FieldImpact, "new files are not filed until monitoring starts"),
		)
	}

	logger.Info("shelver daemon ready",
		logging.String("socket", cfg.SocketPath()),
		logging.String("log_path", logPath),
		logging.String(logging.FieldEventType, "daemon_ready"),
	)
	<-signalCtx.Done()
	logger.Info("shelver daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "shelver.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_model", cfg.LLM.Model),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("activity_backend", cfg.Activity.Backend),
	}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		attrs = append(attrs,
			logging.Bool(dep.Name+"_available", dep.Available),
			logging.String(dep.Name+"_binary", dep.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
