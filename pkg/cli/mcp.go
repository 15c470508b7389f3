package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/fitplan/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve plan generation tools over MCP stdio",
		Flags: allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the protocol
			ctx, logger, err := cfg.setupLogger(ctx, os.Stderr)
			if err != nil {
				return err
			}

			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer p.close()

			logger.Info("serving MCP over stdio", "store", cfg.store)
			return mcp.NewServer(p.usecase, Version).RunStdio(ctx)
		},
	}
}
