package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nstehr/vimy/hivemind/agent"
	"github.com/nstehr/vimy/hivemind/config"
	"github.com/nstehr/vimy/hivemind/ipc"
	"github.com/nstehr/vimy/hivemind/telemetry"
)

const banner = `
██╗  ██╗██╗██╗   ██╗███████╗
██║  ██║██║██║   ██║██╔════╝
███████║██║██║   ██║█████╗
██╔══██║██║╚██╗ ██╔╝██╔══╝
██║  ██║██║ ╚████╔╝ ███████╗
╚═╝  ╚═╝╚═╝  ╚═══╝  ╚══════╝ mind

Strategic Decision Core`

func main() {
	configPath := flag.String("config", config.PathFromEnv(""), "path to hivemind.yaml (defaults to $"+config.EnvPath+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	fmt.Println(banner)

	slog.Info("starting hivemind", "config", *configPath, "doctrine", cfg.Doctrine.Name, "level", level.String())

	if err := run(cfg); err != nil {
		slog.Error("hivemind stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	sink, hub, err := telemetry.Open(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("open telemetry: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("telemetry close failed", "error", err)
		}
	}()

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(cfg.Socket); err != nil {
		return fmt.Errorf("clean up socket %s: %w", cfg.Socket, err)
	}
	listener, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Socket, err)
	}
	defer os.Remove(cfg.Socket)
	slog.Info("listening on domain socket", "path", cfg.Socket)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	eg, ctx := errgroup.WithContext(ctx)

	conns := newConnSet()
	eg.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("failed to accept connection", "error", err)
				continue
			}
			slog.Info("new connection accepted")
			go handleConn(conn, cfg, sink, conns)
		}
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		listener.Close()
		conns.closeAll()
		return nil
	})

	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: cfg.Telemetry.DashboardAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			slog.Info("dashboard listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = eg.Wait()
	conns.wait()
	return err
}

func handleConn(conn net.Conn, cfg config.Config, sink telemetry.Sink, conns *connSet) {
	brain, err := agent.NewBrain(cfg, sink)
	if err != nil {
		slog.Error("failed to build brain", "error", err)
		conn.Close()
		return
	}
	c := ipc.NewConnection(conn, nil)
	agent.New(c, brain)

	if !conns.add(c) {
		c.Close()
		return
	}
	defer conns.done(c)
	c.ReadLoop()
}

// connSet tracks live connections so shutdown can unblock their read loops.
type connSet struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	m      map[*ipc.Connection]struct{}
}

func newConnSet() *connSet {
	return &connSet{m: make(map[*ipc.Connection]struct{})}
}

func (s *connSet) add(c *ipc.Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.m[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *connSet) done(c *ipc.Connection) {
	s.mu.Lock()
	delete(s.m, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *connSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.m {
		c.Close()
	}
}

func (s *connSet) wait() { s.wg.Wait() }
