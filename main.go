package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/corpus-collector/internal/collect"
	"github.com/dtnitsch/corpus-collector/internal/common"
	"github.com/dtnitsch/corpus-collector/internal/db"
	"github.com/dtnitsch/corpus-collector/internal/label"
	"github.com/dtnitsch/corpus-collector/pkg/help"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(common.ExitFailure)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{Name: "db", Usage: "run log database path", EnvVars: []string{"CORPUS_DB"}}

	return &cli.App{
		Name:  "corpus-collector",
		Usage: "vectorize a list of pages with a trainee ruleset and download the corpus",
		Commands: []*cli.Command{
			{
				Name:  "quickstart",
				Usage: "print a YAML quick start",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprint(c.App.Writer, help.ColdstartYAML)
					return err
				},
			},
			{
				Name:   "collect",
				Usage:  "visit every page, vectorize it and download vectors.json",
				Flags:  collect.Flags(),
				Action: collect.CollectAction,
			},
			{
				Name:   "label",
				Usage:  "label an element of a page for training",
				Flags:  label.Flags(),
				Action: label.LabelAction,
			},
			{
				Name:   "runs",
				Usage:  "list recent collection runs",
				Flags:  []cli.Flag{dbFlag, &cli.IntFlag{Name: "limit", Value: 20, Usage: "number of runs to list"}},
				Action: db.RunsAction,
			},
			{
				Name:      "run",
				Usage:     "show a run and its page statuses",
				ArgsUsage: "[run_id]",
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: "format", Value: "yaml", Usage: "output format: yaml or json"},
					&cli.StringFlag{Name: "fields", Usage: "comma separated fields to print"},
				},
				Action: db.RunAction,
			},
		},
	}
}
