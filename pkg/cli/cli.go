package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Version is reported by the MCP server
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	// Environment variables already set take precedence over .env
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Code: 1, Message: "failed to load .env: " + err.Error()}
	}

	if err := newApp().Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "fitplan",
		Usage: "Personalized fitness plan generator grounded on a workout journal",
		Commands: []*cli.Command{
			serveCommand(),
			planCommand(),
			coachCommand(),
			syncCommand(),
			mcpCommand(),
			journalCommand(),
			goalCommand(),
			migrateCommand(),
		},
	}
}
