package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"

	"github.com/starford/mdcal/internal"
	"github.com/starford/mdcal/internal/docservice"
	"github.com/starford/mdcal/internal/docstore"
)

// dateLayouts are tried in order after plain epoch milliseconds.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseMillis accepts epoch milliseconds or a date/time in loc.
func parseMillis(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("cannot parse %q as a date (use YYYY-MM-DD, RFC 3339 or epoch ms)", s)
}

// cliEnv is what every document command needs: the service and the
// calendar location for date flags.
type cliEnv struct {
	svc *docservice.Service
	loc *time.Location
	out io.Writer
}

func newEnv(cmd *cli.Command) (*cliEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Calendar.Location()
	if err != nil {
		return nil, err
	}
	svc, err := internal.NewService(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return nil, err
	}
	return &cliEnv{svc: svc, loc: loc, out: cmd.Root().Writer}, nil
}

func (e *cliEnv) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *cliEnv) millisFlag(cmd *cli.Command, name string) (int64, error) {
	ms, err := parseMillis(cmd.String(name), e.loc)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return ms, nil
}

// withEnv adapts a document command to the shared setup.
func withEnv(fn func(context.Context, *cli.Command, *cliEnv) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		env, err := newEnv(cmd)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, env)
	}
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s): %s", cmd.Name, n, cmd.ArgsUsage)
	}
	return nil
}

func folderCommand() *cli.Command {
	return &cli.Command{
		Name:  "folder",
		Usage: "Show or change the documents folder",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the folder documents are read from",
				Action: withEnv(func(ctx context.Context, _ *cli.Command, env *cliEnv) error {
					dir, err := env.svc.DocumentsDir(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(env.out, dir)
					return err
				}),
			},
			{
				Name:      "set",
				Usage:     "Store a new documents folder; it is created if missing",
				ArgsUsage: "PATH",
				Action: withEnv(func(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
					if err := requireArgs(cmd, 1); err != nil {
						return err
					}
					if err := env.svc.SetDocumentsFolder(ctx, cmd.Args().First()); err != nil {
						return err
					}
					dir, err := env.svc.DocumentsDir(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(env.out, dir)
					return err
				}),
			},
		},
	}
}

func summaryFlag() cli.Flag {
	return &cli.BoolFlag{Name: "summary", Aliases: []string{"s"}, Usage: "Omit document content"}
}

func docCommand() *cli.Command {
	return &cli.Command{
		Name:  "doc",
		Usage: "Create, read, change and query documents",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "content", Usage: "Markdown body; - reads stdin"},
					&cli.StringFlag{Name: "start", Required: true, Usage: "YYYY-MM-DD, RFC 3339 or epoch ms"},
					&cli.StringFlag{Name: "end", Usage: "Defaults to --start"},
					&cli.StringFlag{Name: "status"},
				},
				Action: withEnv(createAction),
			},
			{
				Name:      "get",
				Usage:     "Print one document",
				ArgsUsage: "ID",
				Action: withEnv(func(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
					if err := requireArgs(cmd, 1); err != nil {
						return err
					}
					doc, err := env.svc.GetDocument(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					return env.print(doc)
				}),
			},
			{
				Name:      "update",
				Usage:     "Change the given fields of a document",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "content", Usage: "Markdown body; - reads stdin"},
					&cli.StringFlag{Name: "start"},
					&cli.StringFlag{Name: "end"},
					&cli.StringFlag{Name: "status"},
					&cli.StringFlag{Name: "if-match", Usage: "Fail unless the document checksum matches"},
				},
				Action: withEnv(updateAction),
			},
			{
				Name:      "delete",
				Usage:     "Delete a document (succeeds if already gone)",
				ArgsUsage: "ID",
				Action: withEnv(func(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
					if err := requireArgs(cmd, 1); err != nil {
						return err
					}
					ok, err := env.svc.DeleteDocument(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					return env.print(map[string]bool{"deleted": ok})
				}),
			},
			{
				Name:      "next-status",
				Usage:     "Advance a document's status one step",
				ArgsUsage: "ID",
				Action: withEnv(func(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
					if err := requireArgs(cmd, 1); err != nil {
						return err
					}
					doc, err := env.svc.CycleStatus(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					return env.print(doc)
				}),
			},
			{
				Name:  "list",
				Usage: "List documents, most recently updated first",
				Flags: []cli.Flag{summaryFlag()},
				Action: withEnv(func(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
					if cmd.Bool("summary") {
						sums, err := env.svc.ListSummaries(ctx)
						if err != nil {
							return err
						}
						return env.print(sums)
					}
					docs, err := env.svc.ListDocuments(ctx)
					if err != nil {
						return err
					}
					return env.print(docs)
				}),
			},
			{
				Name:      "month",
				Usage:     "List documents overlapping a month",
				ArgsUsage: "YEAR MONTH",
				Flags:     []cli.Flag{summaryFlag()},
				Action:    withEnv(monthAction),
			},
			{
				Name:      "search",
				Usage:     "Case-insensitive search over titles and content",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					summaryFlag(),
					&cli.BoolFlag{Name: "fuzzy", Usage: "Rank titles by fuzzy match"},
				},
				Action: withEnv(searchAction),
			},
			{
				Name:  "export-ics",
				Usage: "Write an iCalendar feed of all documents or one month",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year"},
					&cli.IntFlag{Name: "month"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
				},
				Action: withEnv(exportAction),
			},
		},
	}
}

func readContent(v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func createAction(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
	content, err := readContent(cmd.String("content"))
	if err != nil {
		return err
	}
	start, err := env.millisFlag(cmd, "start")
	if err != nil {
		return err
	}
	end := start
	if cmd.IsSet("end") {
		if end, err = env.millisFlag(cmd, "end"); err != nil {
			return err
		}
	}
	in := docstore.CreateInput{
		Title:     cmd.String("title"),
		Content:   content,
		StartDate: start,
		EndDate:   end,
	}
	if cmd.IsSet("status") {
		status := cmd.String("status")
		in.Status = &status
	}
	doc, err := env.svc.CreateDocument(ctx, in)
	if err != nil {
		return err
	}
	return env.print(doc)
}

func updateAction(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	in := docstore.UpdateInput{IfMatch: cmd.String("if-match")}
	for _, f := range []struct {
		name string
		dst  **string
	}{
		{"title", &in.Title},
		{"status", &in.Status},
	} {
		if cmd.IsSet(f.name) {
			v := cmd.String(f.name)
			*f.dst = &v
		}
	}
	if cmd.IsSet("content") {
		content, err := readContent(cmd.String("content"))
		if err != nil {
			return err
		}
		in.Content = &content
	}
	for _, f := range []struct {
		name string
		dst  **int64
	}{
		{"start", &in.StartDate},
		{"end", &in.EndDate},
	} {
		if cmd.IsSet(f.name) {
			ms, err := env.millisFlag(cmd, f.name)
			if err != nil {
				return err
			}
			*f.dst = &ms
		}
	}
	doc, err := env.svc.UpdateDocument(ctx, cmd.Args().First(), in)
	if err != nil {
		return err
	}
	return env.print(doc)
}

func monthAction(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
	if err := requireArgs(cmd, 2); err != nil {
		return err
	}
	year, err1 := strconv.Atoi(cmd.Args().Get(0))
	month, err2 := strconv.Atoi(cmd.Args().Get(1))
	if err := errors.Join(err1, err2); err != nil {
		return fmt.Errorf("month: YEAR and MONTH must be integers: %w", err)
	}
	if cmd.Bool("summary") {
		sums, err := env.svc.ListSummariesForMonth(ctx, year, month)
		if err != nil {
			return err
		}
		return env.print(sums)
	}
	docs, err := env.svc.ListForMonth(ctx, year, month)
	if err != nil {
		return err
	}
	return env.print(docs)
}

func searchAction(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	q := cmd.Args().First()
	switch {
	case cmd.Bool("fuzzy"):
		sums, err := env.svc.FuzzySearchSummaries(ctx, q)
		if err != nil {
			return err
		}
		return env.print(sums)
	case cmd.Bool("summary"):
		sums, err := env.svc.SearchSummaries(ctx, q)
		if err != nil {
			return err
		}
		return env.print(sums)
	}
	docs, err := env.svc.SearchDocuments(ctx, q)
	if err != nil {
		return err
	}
	return env.print(docs)
}

func exportAction(ctx context.Context, cmd *cli.Command, env *cliEnv) error {
	feed, err := env.svc.ExportICS(ctx, int(cmd.Int("year")), int(cmd.Int("month")))
	if err != nil {
		return err
	}
	if out := cmd.String("out"); out != "" {
		return atomic.WriteFile(out, strings.NewReader(feed))
	}
	_, err = io.WriteString(env.out, feed)
	return err
}
