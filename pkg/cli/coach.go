package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func coachCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	return &cli.Command{
		Name:  "coach",
		Usage: "Interactive session generating a plan per request",
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

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create readline")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintln(w, "Describe what you want to train. Type 'exit' to quit.")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if len(line) == 0 {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}

				plan, err := p.usecase.GeneratePlan(ctx, model.UserID(userID), line)
				if err != nil {
					logging.From(ctx).Error("failed to generate plan", "error", err)
					fmt.Fprintf(w, "error: %v\n", err)
					continue
				}
				fmt.Fprintf(w, "\n%s\n\n", plan.Text)
			}
		},
	}
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "fitplan")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, "coach_history")
}
