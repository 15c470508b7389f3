package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/fitplan/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the Postgres tables and the vector search function",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, logger, err := cfg.setupLogger(ctx, nil)
			if err != nil {
				return err
			}

			if cfg.store != storePostgres {
				return goerr.New("migrate supports the postgres store only", goerr.V("store", cfg.store))
			}
			if cfg.dsn == "" {
				return goerr.New("db-url is required")
			}

			if err := repository.MigratePostgres(ctx, cfg.postgresConfig()); err != nil {
				return err
			}

			logger.Info("schema applied")
			fmt.Fprintln(c.Root().Writer, "schema applied")
			return nil
		},
	}
}
