package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"shelver/internal/daemon"
	"shelver/internal/logging"
	"shelver/internal/services"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption customises a Server.
type ServerOption func(*service)

// WithShutdown installs the function run by the Shutdown method. Without it
// Shutdown only stops monitoring.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) { s.shutdown = fn }
}

// NewServer configures the IPC server at the given socket path. Any stale
// socket file is replaced; callers must hold the daemon lock first.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	for _, opt := range opts {
		if opt != nil {
			opt(srv)
		}
	}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may confuse shelver status"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

// request tags ctx with a fresh request id so daemon-side log lines for one
// RPC can be correlated.
func (s *service) request() (context.Context, *slog.Logger) {
	ctx := services.WithRequestID(s.ctx, uuid.NewString())
	return ctx, logging.WithContext(ctx, s.logger)
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	ctx, logger := s.request()
	logger.Debug("monitoring start requested")
	if s.daemon.Running() {
		resp.Started = false
		resp.Message = "monitoring already running"
		return nil
	}
	if err := s.daemon.Start(ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "monitoring started"
	logger.Info("monitoring started via IPC",
		logging.String(logging.FieldEventType, "ipc_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	_, logger := s.request()
	s.daemon.Stop()
	resp.Stopped = true
	logger.Info("monitoring stopped via IPC",
		logging.String(logging.FieldEventType, "ipc_stop"))
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	_, logger := s.request()
	s.daemon.Stop()
	resp.Accepted = true
	logger.Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "ipc_shutdown"))
	if s.shutdown != nil {
		s.shutdown()
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	ctx, _ := s.request()
	resp.Status = s.daemon.Status(ctx)
	return nil
}

func (s *service) Rescan(_ RescanRequest, resp *RescanResponse) error {
	ctx, logger := s.request()
	processed, err := s.daemon.Rescan(ctx)
	if err != nil {
		return err
	}
	resp.Processed = processed
	logger.Info("rescan completed via IPC",
		logging.String(logging.FieldEventType, "ipc_rescan"),
		logging.Int("processed", processed))
	return nil
}

func (s *service) Undo(_ UndoRequest, resp *UndoResponse) error {
	ctx, _ := s.request()
	result, err := s.daemon.Undo(ctx)
	if err != nil {
		return err
	}
	resp.Result = result
	return nil
}

func (s *service) Activity(req ActivityRequest, resp *ActivityResponse) error {
	ctx, _ := s.request()
	entries, err := s.daemon.Activity(ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Entries = entries
	return nil
}

func (s *service) Pending(_ PendingRequest, resp *PendingResponse) error {
	resp.Files = s.daemon.Pending()
	return nil
}

func (s *service) Review(_ ReviewRequest, resp *ReviewResponse) error {
	listing, err := s.daemon.Review()
	if err != nil {
		return err
	}
	resp.Dir = listing.Dir
	resp.Files = listing.Files
	return nil
}

func (s *service) Reprocess(req ReprocessRequest, resp *ReprocessResponse) error {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return errors.New("reprocess requires a path")
	}
	ctx, logger := s.request()
	logger.Debug("reprocess requested", logging.String(logging.FieldFile, path))
	result, err := s.daemon.Reprocess(ctx, path)
	resp.Result = result
	return err
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	ctx, _ := s.request()
	sent, message, err := s.daemon.TestNotification(ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
