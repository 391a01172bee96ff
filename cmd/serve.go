package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server over HTTP with per-session authentication",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// Serve runs the multi-tenant HTTP mode.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = int(port)
	}

	core, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer core.Close()

	mcpHandler := server.NewMCPHandler(core.registry, core.dispatcher, r.logger, appName, appVersion)
	callbackRegistry := core.registry
	if config.Auth.Mode == "global" {
		mcpHandler.UseGlobalAuth()
		callbackRegistry = nil
		r.logger.Info("auth mode: global credential set shared across sessions")
	}

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger), server.CORSMiddleware())
	router.Handler(mcpHandler)
	router.Handler(server.NewCallbackHandler(core.store, callbackRegistry, r.logger))
	router.Handle(http.MethodGet, "/health", server.HealthHandler())
	router.Handle(http.MethodGet, "/", server.IndexHandler(appName, appVersion))

	httpServer := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	r.banner(config.Server.Addr())

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (r *Runner) banner(addr string) {
	r.writePlain("%s\n", ui.Default.Title(appName+" "+appVersion))
	r.writePlain("%s %s\n", ui.Default.OK("listening on"), addr)
	r.writePlain("%s\n", ui.Default.Help("protocol endpoint: /mcp · oauth callback: /callback"))
}
