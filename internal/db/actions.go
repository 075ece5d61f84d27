package db

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/corpus-collector/internal/common"
	dbpkg "github.com/dtnitsch/corpus-collector/pkg/db"
)

// RunView is a run as printed by the run command.
type RunView struct {
	RunID        int64      `json:"run_id" yaml:"run_id"`
	RunUUID      string     `json:"run_uuid" yaml:"run_uuid"`
	TraineeID    string     `json:"trainee_id" yaml:"trainee_id"`
	WaitSeconds  int        `json:"wait_seconds" yaml:"wait_seconds"`
	RetryOnError bool       `json:"retry_on_error" yaml:"retry_on_error"`
	StartedAt    string     `json:"started_at" yaml:"started_at"`
	FinishedAt   string     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	PageCount    int        `json:"page_count" yaml:"page_count"`
	Vectorized   int        `json:"vectorized" yaml:"vectorized"`
	Warnings     int        `json:"warnings" yaml:"warnings"`
	Failed       int        `json:"failed" yaml:"failed"`
	OutputPath   string     `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Error        string     `json:"error,omitempty" yaml:"error,omitempty"`
	Pages        []PageView `json:"pages" yaml:"pages"`
}

// PageView is one page's final status within a RunView.
type PageView struct {
	Position int    `json:"position" yaml:"position"`
	URL      string `json:"url" yaml:"url"`
	Outcome  string `json:"outcome" yaml:"outcome"`
	Message  string `json:"message" yaml:"message"`
}

const timeLayout = "2006-01-02 15:04:05"

// RunsAction lists recent runs as a table.
func RunsAction(c *cli.Context) error {
	database, err := OpenFromContext(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	w := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-20s %-6s %-11s %-9s %-7s\n",
		"ID", "Started", "Ruleset", "Pages", "Vectorized", "Warnings", "Failed")
	fmt.Fprintln(w, strings.Repeat("-", 85))
	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-20s %-6d %-11d %-9d %-7d\n",
			r.RunID,
			r.StartedAt.Format(timeLayout),
			r.TraineeID,
			r.PageCount,
			r.VectorizedCount,
			r.WarningCount,
			r.FailedCount,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'corpus-collector run <id>' to see page statuses\n")
	return nil
}

// RunAction prints one run and its page statuses, the latest run when no ID is given.
func RunAction(c *cli.Context) error {
	database, err := OpenFromContext(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	pages, err := database.GetPageResults(runID)
	if err != nil {
		return fmt.Errorf("failed to get page results: %w", err)
	}

	view := newRunView(run, pages)
	return common.WriteFormatted(c.App.Writer, c.String("format"), common.FilterFields(view, c.String("fields")))
}

func newRunView(run *dbpkg.Run, pages []dbpkg.PageResult) RunView {
	view := RunView{
		RunID:        run.RunID,
		RunUUID:      run.RunUUID,
		TraineeID:    run.TraineeID,
		WaitSeconds:  run.WaitSeconds,
		RetryOnError: run.RetryOnError,
		StartedAt:    run.StartedAt.Format(timeLayout),
		PageCount:    run.PageCount,
		Vectorized:   run.VectorizedCount,
		Warnings:     run.WarningCount,
		Failed:       run.FailedCount,
		OutputPath:   run.OutputPath,
		Error:        run.ErrorMessage,
		Pages:        make([]PageView, 0, len(pages)),
	}
	if run.FinishedAt != nil {
		view.FinishedAt = run.FinishedAt.Format(timeLayout)
	}
	for _, p := range pages {
		view.Pages = append(view.Pages, PageView{
			Position: p.Position,
			URL:      p.URL,
			Outcome:  p.Outcome,
			Message:  p.Message,
		})
	}
	return view
}
