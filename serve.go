package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/0ad/0ad-sub001/agent"
	"github.com/0ad/0ad-sub001/config"
	"github.com/0ad/0ad-sub001/ipc"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/rules"
)

const (
	acceptInterval = 100 * time.Millisecond
	acceptBurst    = 4
)

func serveCmd(f *flags) *cobra.Command {
	var socket string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve game hosts over a unix socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(f, socket)
		},
	}
	cmd.Flags().StringVarP(&socket, "socket", "s", "", "Socket path override")
	return cmd
}

// server holds what every connection shares: the session hub and the
// config currently in force.
type server struct {
	hub *agent.Hub

	mu       sync.Mutex
	triggers []*rules.Trigger
	profiles map[military.CampaignType]military.Profile
}

func (s *server) reload(cfg *config.Config) {
	triggers, profiles := cfg.LaunchTriggers(), cfg.CampaignProfiles()
	if _, err := rules.NewEngine(triggers); err != nil {
		slog.Error("reloaded triggers rejected", "error", err)
		return
	}
	s.mu.Lock()
	s.triggers, s.profiles = triggers, profiles
	s.mu.Unlock()
	if err := s.hub.SwapTriggers(triggers); err != nil {
		slog.Error("trigger swap failed", "error", err)
	}
	s.hub.SetProfiles(profiles)
	slog.Info("config applied", "sessions", s.hub.Len(), "triggers", len(triggers))
}

func serve(f *flags, socketOverride string) error {
	srv := &server{hub: agent.NewHub()}
	cfg, err := config.Watch(f.config, func(next *config.Config) {
		f.override(next)
		if err := next.Validate(); err != nil {
			slog.Error("config reload rejected", "error", err)
			return
		}
		srv.reload(next)
	})
	if err != nil {
		return err
	}
	f.override(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	defer setupLogging(cfg.Log).Close()

	if _, err := rules.NewEngine(cfg.LaunchTriggers()); err != nil {
		return fmt.Errorf("launch triggers: %w", err)
	}
	srv.mu.Lock()
	srv.triggers, srv.profiles = cfg.LaunchTriggers(), cfg.CampaignProfiles()
	srv.mu.Unlock()

	fmt.Println(banner)
	slog.Info("starting sidecar")

	socketPath := cfg.Socket
	if socketOverride != "" {
		socketPath = socketOverride
	}

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("clean up socket %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	slog.Info("listening on domain socket", "path", socketPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bounds session setup when a host reconnects in a tight loop.
	limiter := rate.NewLimiter(rate.Every(acceptInterval), acceptBurst)

	go func() {
		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					slog.Error("failed to accept connection", "error", err)
					continue
				}
			}
			slog.Info("new connection accepted")
			go srv.handleConn(conn)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down", "sessions", srv.hub.Len())
	return nil
}

func (s *server) handleConn(conn net.Conn) {
	s.mu.Lock()
	triggers, profiles := s.triggers, s.profiles
	s.mu.Unlock()

	engine, err := rules.NewEngine(triggers)
	if err != nil {
		slog.Error("session triggers rejected", "error", err)
		conn.Close()
		return
	}
	c := ipc.NewConnection(conn, nil)
	a := agent.New(c, engine, agent.Options{Profiles: profiles})
	s.hub.Add(a)
	defer s.hub.Remove(a)

	c.RegisterHandler(ipc.TypeHello, a.HandleHello)
	c.RegisterHandler(ipc.TypeGameState, a.HandleGameState)
	c.ReadLoop()
}
