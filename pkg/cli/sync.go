package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/urfave/cli/v3"
)

func syncCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	return &cli.Command{
		Name:  "sync",
		Usage: "Embed plans and journal entries that are not searchable yet",
		Flags: allFlags(&cfg, userFlag(&userID)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _, err := cfg.setupLogger(ctx, nil)
			if err != nil {
				return err
			}

			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer p.close()

			result, err := p.usecase.SyncEmbeddings(ctx, model.UserID(userID))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "embedded %d plans and %d entries\n", result.Plans, result.Entries)
			return nil
		},
	}
}

// userFlag is the required user ID flag of user scoped commands
func userFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "user",
		Aliases:     []string{"u"},
		Usage:       "User ID",
		Required:    true,
		Sources:     cli.EnvVars("FITPLAN_USER_ID"),
		Destination: dst,
	}
}
