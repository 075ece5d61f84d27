// Package visitor drives a run: it opens each page in a tab, hands the tab to
// a Processor within the page timeout and reports every page's status.
package visitor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dtnitsch/corpus-collector/models"
)

// ErrNoPages is returned by Run for options without any page.
var ErrNoPages = errors.New("visitor: no pages to process")

// closeTabTimeout bounds closing a tab once its page is done.
const closeTabTimeout = 10 * time.Second

// Processor is the per-run work plugged into the driver.
type Processor interface {
	BeginRun(ctx context.Context, opts models.RunOptions) error
	// Viewport is the window size pages should be opened at.
	Viewport(ctx context.Context) (models.ViewportSize, error)
	// VisitPage processes the page loaded in tab and returns its final status.
	VisitPage(ctx context.Context, tab models.Tab) models.Status
	EndRun(ctx context.Context) error
}

// TabOpener loads pages into tabs.
type TabOpener interface {
	Open(ctx context.Context, url string, viewport models.ViewportSize) (models.Tab, error)
	Close(ctx context.Context, tab models.Tab) error
}

// Page identifies the page a status belongs to.
type Page struct {
	Index    int
	URL      string
	Filename string
}

// Reporter renders statuses.
type Reporter interface {
	Report(page Page, status models.Status)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(page Page, status models.Status)

// Report implements Reporter.
func (f ReporterFunc) Report(page Page, status models.Status) { f(page, status) }

// Summary counts final page outcomes of a run.
type Summary struct {
	Pages      int
	Vectorized int
	Warnings   int
	Failed     int
}

func (s *Summary) add(outcome models.Outcome) {
	switch outcome {
	case models.OutcomeVectorized:
		s.Vectorized++
	case models.OutcomeWarning:
		s.Warnings++
	default:
		s.Failed++
	}
}

// Driver owns the run lifecycle.
type Driver struct {
	tabs     TabOpener
	reporter Reporter
	logger   *zap.Logger

	current Page
}

// NewDriver returns a Driver opening pages with tabs and rendering statuses with reporter.
func NewDriver(tabs TabOpener, reporter Reporter, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = ReporterFunc(func(Page, models.Status) {})
	}
	return &Driver{
		tabs:     tabs,
		reporter: reporter,
		logger:   logger.With(zap.String("component", "visitor")),
	}
}

// SetCurrentStatus reports status for the page being visited.
func (d *Driver) SetCurrentStatus(status models.Status) {
	d.reporter.Report(d.current, status)
}

// Run visits every page of opts in order, one at a time. Cancelling ctx stops
// the run before the next page; EndRun is still called so the pages already
// processed are not lost.
func (d *Driver) Run(ctx context.Context, opts models.RunOptions, p Processor) (Summary, error) {
	var summary Summary
	if len(opts.URLs) == 0 {
		return summary, ErrNoPages
	}

	if err := p.BeginRun(ctx, opts); err != nil {
		return summary, fmt.Errorf("failed to begin run: %w", err)
	}

	viewport, err := p.Viewport(ctx)
	if err != nil {
		d.logger.Warn("viewport unavailable, using browser default", zap.Error(err))
		viewport = models.ViewportSize{}
	}

	var runErr error
	for i, entry := range opts.URLs {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("run interrupted", zap.Int("remaining", len(opts.URLs)-i))
			runErr = err
			break
		}

		d.current = Page{Index: i, URL: entry.URL, Filename: entry.Filename}
		if d.current.Filename == "" {
			d.current.Filename = Filename(entry.URL)
		}

		status := d.visit(ctx, opts.Timeout, viewport, p)
		status.IsFinal = true
		d.SetCurrentStatus(status)
		summary.Pages++
		summary.add(status.Outcome)
	}

	if err := p.EndRun(context.WithoutCancel(ctx)); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to end run: %w", err))
	}

	d.logger.Info("run finished",
		zap.Int("pages", summary.Pages),
		zap.Int("vectorized", summary.Vectorized),
		zap.Int("warnings", summary.Warnings),
		zap.Int("failed", summary.Failed))
	return summary, runErr
}

func (d *Driver) visit(ctx context.Context, timeout time.Duration, viewport models.ViewportSize, p Processor) models.Status {
	pageCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	d.SetCurrentStatus(models.Status{Message: "loading"})
	tab, err := d.tabs.Open(pageCtx, d.current.URL, viewport)
	if err != nil {
		d.logger.Error("failed to open tab", zap.String("url", d.current.URL), zap.Error(err))
		return models.Status{Message: "failed: " + err.Error(), IsError: true, IsFinal: true, Outcome: models.OutcomeFailed}
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTabTimeout)
		defer cancel()
		if err := d.tabs.Close(closeCtx, tab); err != nil {
			d.logger.Warn("failed to close tab", zap.Int("tab_id", tab.ID), zap.Error(err))
		}
	}()

	d.SetCurrentStatus(models.Status{Message: "processing"})
	return p.VisitPage(pageCtx, tab)
}

// Filename derives a filesystem-friendly name from a page URL.
func Filename(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" {
		safe := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
		safe = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(safe)
		return safe + ".html"
	}

	host := strings.ReplaceAll(parsedURL.Host, ".", "_")
	host = strings.ReplaceAll(host, ":", "_")

	// Keep the path to avoid collisions (e.g. example.com/a/b vs example.com/a-b.html)
	path := strings.Trim(parsedURL.Path, "/")
	path = strings.ReplaceAll(path, "/", "-")
	path = strings.ReplaceAll(path, ".", "_")

	if path == "" {
		return host + ".html"
	}
	return host + "-" + path + ".html"
}
