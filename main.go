// Command chatty starts the Chatty backend server.
//
// The default command runs the HTTP server exposing the REST API and the
// /ws websocket endpoint. The migrate subcommand applies the database schema
// and exits. Configuration comes from the environment, with an optional .env
// file; NGROK_ENABLED provisions a public tunnel for development.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/chattyhq/chatty/api"
	"github.com/chattyhq/chatty/config"
	"github.com/chattyhq/chatty/realtime"
	"github.com/chattyhq/chatty/store"
	wstransport "github.com/chattyhq/chatty/transport/websocket"
)

func main() {
	cmd := &cli.Command{
		Name:           "chatty",
		Usage:          "room-based chat backend with real-time fan-out",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server (default)",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema and exit",
				Action: runMigrate,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema migrated", "database", cfg.DatabasePath)
	return nil
}

func runServe(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	logger.Info("starting",
		"app", cfg.AppName,
		"version", cfg.AppVersion,
		"env", cfg.AppEnv,
		"addr", cfg.Addr(),
	)

	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	core := realtime.New(realtime.Options{
		MaxConnections: cfg.MaxConnections,
		Logger:         logger,
	})

	server := api.NewServer(api.Options{
		Store:         st,
		Gateway:       core.Gateway,
		WebSocket:     wstransport.NewHandler(core.Gateway, cfg.WriteTimeout, logger),
		AppName:       cfg.AppName,
		Version:       cfg.AppVersion,
		EnableMetrics: cfg.EnableMetrics,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     server,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http server listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(serveCtx, cfg, server, logger)
		}()
	}

	sig := <-stop
	logger.Info("shutting down", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// runNgrokTunnel exposes the server through a public ngrok endpoint. Used in
// development to demo from a laptop without port forwarding.
func runNgrokTunnel(ctx context.Context, cfg config.Config, handler http.Handler, logger *slog.Logger) {
	authToken := os.Getenv("NGROK_AUTHTOKEN")
	if authToken == "" {
		logger.Warn("ngrok enabled but NGROK_AUTHTOKEN is not set")
		return
	}

	tunnel := ngrokConfig.HTTPEndpoint()
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("ngrok tunnel failed", "error", err)
		return
	}
	defer tun.Close()

	logger.Info("ngrok tunnel established", "url", tun.URL())
	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Error("ngrok server error", "error", err)
	}
}
