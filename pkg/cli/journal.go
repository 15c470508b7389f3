package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func journalCommand() *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Manage workout journal entries",
		Commands: []*cli.Command{
			journalAddCommand(),
		},
	}
}

func journalAddCommand() *cli.Command {
	var (
		cfg         config
		userID      string
		entryType   string
		name        string
		description string
		notes       string
		at          string
	)

	flags := append([]cli.Flag{
		userFlag(&userID),
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Entry type, e.g. workout_note",
			Value:       "workout_note",
			Destination: &entryType,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "Short name of the entry",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "description",
			Usage:       "Entry description",
			Destination: &description,
		},
		&cli.StringFlag{
			Name:        "notes",
			Usage:       "Free form notes, used when no content argument is given",
			Destination: &notes,
		},
		&cli.StringFlag{
			Name:        "at",
			Usage:       "Time of the workout in RFC3339 or YYYY-MM-DD, now if empty",
			Destination: &at,
		},
	}, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "add",
		Usage:     "Add a journal entry",
		ArgsUsage: "[content...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _, err := cfg.setupLogger(ctx, nil)
			if err != nil {
				return err
			}

			timestamp, err := parseTimestamp(at, time.Now())
			if err != nil {
				return err
			}

			entry := &model.SourceDocument{
				UserID:      model.UserID(userID),
				Kind:        model.DocumentKindEntry,
				Name:        name,
				Description: description,
				Content:     strings.TrimSpace(strings.Join(c.Args().Slice(), " ")),
				Notes:       notes,
				EntryType:   entryType,
				Timestamp:   &timestamp,
			}
			if entry.Name == "" && entry.Description == "" && entry.Content == "" && entry.Notes == "" {
				return goerr.New("entry has no text")
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.PutEntry(ctx, entry); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "added entry %s\n", entry.ID)
			return nil
		},
	}
}

func parseTimestamp(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid timestamp", goerr.V("at", s))
	}
	return t, nil
}
