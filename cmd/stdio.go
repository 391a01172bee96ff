package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

func stdioCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stdio",
		Usage: "Run the MCP server over stdio with a single credential set",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Stdio,
	}
}

// Stdio runs the single-tenant stdio mode.
//
// The protocol runs over stdin/stdout via the SDK; a sidecar HTTP listener
// serves only the OAuth callback, since the authorization redirect still needs
// somewhere to land. All tokens live under the global session id.
func (r *Runner) Stdio(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	core, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer core.Close()

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(server.NewCallbackHandler(core.store, nil, r.logger))

	httpServer := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("callback listener failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	r.logger.Info("callback listener started", "addr", config.Server.Addr())

	srv := mcp.NewServer(&mcp.Implementation{Name: appName, Version: appVersion}, nil)
	tools.Register(srv, core.dispatcher, tools.GlobalSession)

	return srv.Run(ctx, &mcp.StdioTransport{})
}
