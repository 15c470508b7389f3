package cli

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/fitplan/pkg/server"
	"github.com/m-mizutani/fitplan/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg          config
		addr         string
		readTimeout  time.Duration
		writeTimeout time.Duration
		noMCP        bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the plan generation HTTP API",
		Flags: allFlags(&cfg,
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "Listen address",
				Value:       ":8080",
				Sources:     cli.EnvVars("FITPLAN_ADDR"),
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "HTTP read timeout",
				Value:       10 * time.Second,
				Destination: &readTimeout,
			},
			&cli.DurationFlag{
				Name:        "write-timeout",
				Usage:       "HTTP write timeout, bounds a whole plan generation",
				Value:       2 * time.Minute,
				Destination: &writeTimeout,
			},
			&cli.BoolFlag{
				Name:        "no-mcp",
				Usage:       "Do not mount the MCP endpoint at /mcp",
				Destination: &noMCP,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, logger, err := cfg.setupLogger(ctx, nil)
			if err != nil {
				return err
			}
			gin.SetMode(gin.ReleaseMode)

			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer p.close()

			opts := []server.Option{
				server.WithLogger(logger),
				server.WithTimeouts(readTimeout, writeTimeout),
			}
			if !noMCP {
				opts = append(opts, server.WithMCPHandler(mcp.NewServer(p.usecase, Version).Handler()))
			}

			logger.Info("starting server", "addr", addr, "store", cfg.store, "embedder", cfg.embedder, "completer", cfg.completer)
			return server.New(p.usecase, opts...).Run(ctx, addr)
		},
	}
}
