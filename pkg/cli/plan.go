package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func planCommand() *cli.Command {
	var (
		cfg    config
		userID string
		input  string
		quiet  bool
	)

	return &cli.Command{
		Name:      "plan",
		Usage:     "Generate a fitness plan from the command line",
		ArgsUsage: "[request...]",
		Flags: allFlags(&cfg,
			userFlag(&userID),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "Path to a file with the request, - for stdin",
				Destination: &input,
			},
			&cli.BoolFlag{
				Name:        "quiet",
				Aliases:     []string{"q"},
				Usage:       "Do not show progress",
				Destination: &quiet,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _, err := cfg.setupLogger(ctx, nil)
			if err != nil {
				return err
			}

			request, err := readRequest(input, c.Args().Slice())
			if err != nil {
				return err
			}

			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer p.close()

			var sp *spinner.Spinner
			if !quiet {
				sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
				sp.Suffix = " generating plan..."
				sp.Start()
			}

			plan, err := p.usecase.GeneratePlan(ctx, model.UserID(userID), request)
			if sp != nil {
				sp.Stop()
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, plan.Text)
			return nil
		},
	}
}

// readRequest takes the request from a file, stdin or the arguments
func readRequest(path string, args []string) (string, error) {
	var raw string
	switch path {
	case "":
		raw = strings.Join(args, " ")
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read stdin")
		}
		raw = string(data)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
		}
		raw = string(data)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", goerr.New("request is required")
	}
	return raw, nil
}
