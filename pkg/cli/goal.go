package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func goalCommand() *cli.Command {
	return &cli.Command{
		Name:  "goal",
		Usage: "Manage the fitness goal of a user",
		Commands: []*cli.Command{
			goalSetCommand(),
			goalShowCommand(),
		},
	}
}

func goalSetCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	return &cli.Command{
		Name:      "set",
		Usage:     "Set the goal used in generated plans",
		ArgsUsage: "<goal...>",
		Flags:     append([]cli.Flag{userFlag(&userID)}, globalFlags(&cfg)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _, err := cfg.setupLogger(ctx, nil)
			if err != nil {
				return err
			}

			goal := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if goal == "" {
				return goerr.New("goal is required")
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.PutUserGoal(ctx, model.UserID(userID), goal); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "goal of %s updated\n", userID)
			return nil
		},
	}
}

func goalShowCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	return &cli.Command{
		Name:  "show",
		Usage: "Show the goal of a user",
		Flags: append([]cli.Flag{userFlag(&userID)}, globalFlags(&cfg)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _, err := cfg.setupLogger(ctx, nil)
			if err != nil {
				return err
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			goal, err := store.GetUserGoal(ctx, model.UserID(userID))
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, goal)
			return nil
		},
	}
}
