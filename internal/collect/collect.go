package collect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/corpus-collector/internal/metrics"
	"github.com/dtnitsch/corpus-collector/models"
	"github.com/dtnitsch/corpus-collector/pkg/collector"
	"github.com/dtnitsch/corpus-collector/pkg/db"
	"github.com/dtnitsch/corpus-collector/pkg/download"
	"github.com/dtnitsch/corpus-collector/pkg/messaging"
	"github.com/dtnitsch/corpus-collector/pkg/options"
	"github.com/dtnitsch/corpus-collector/pkg/tabs"
	"github.com/dtnitsch/corpus-collector/pkg/trainee"
	"github.com/dtnitsch/corpus-collector/pkg/visitor"
)

// ErrNoWork is returned when the configuration names no pages.
var ErrNoWork = errors.New("nothing to collect: no pages configured")

const (
	metricsNamespace = "corpus_collector"
	shutdownTimeout  = 5 * time.Second
)

var _ collector.Recorder = (*metrics.Collector)(nil)

// Result is what the collect command prints once a run is over.
type Result struct {
	RunID       int64  `json:"run_id" yaml:"run_id"`
	RunUUID     string `json:"run_uuid" yaml:"run_uuid"`
	TraineeID   string `json:"trainee_id" yaml:"trainee_id"`
	Pages       int    `json:"pages" yaml:"pages"`
	Vectorized  int    `json:"vectorized" yaml:"vectorized"`
	Warnings    int    `json:"warnings" yaml:"warnings"`
	Failed      int    `json:"failed" yaml:"failed"`
	OutputPath  string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	OutputBytes int64  `json:"output_bytes,omitempty" yaml:"output_bytes,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Collect performs one collection run as configured by cfg: it connects to the
// bridge, visits every page in order and downloads the corpus document.
// The run and each page's final status are logged to the database.
func Collect(ctx context.Context, cfg models.Config, logger *zap.Logger) (*Result, error) {
	form, err := cfg.FormState()
	if err != nil {
		return nil, err
	}
	opts, ok := options.Resolve(form)
	if !ok {
		return nil, ErrNoWork
	}
	if cfg.PageTimeout > 0 {
		opts.Timeout = cfg.PageTimeout
	}

	sink, err := download.NewDirSink(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	bridge, err := messaging.Dial(ctx, cfg.BridgeURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge: %w", err)
	}
	defer bridge.Close()

	result := &Result{RunUUID: uuid.NewString(), TraineeID: opts.OtherOptions.TraineeID}
	runID, err := database.StartRun(result.RunUUID, opts.OtherOptions.TraineeID, opts.OtherOptions.WaitSeconds, opts.OtherOptions.RetryOnError, len(opts.URLs))
	if err != nil {
		return nil, err
	}
	result.RunID = runID
	runLogger := logger.With(zap.String("run_uuid", result.RunUUID), zap.Int64("run_id", runID))
	runLogger.Info("run started",
		zap.String("trainee_id", opts.OtherOptions.TraineeID),
		zap.Int("pages", len(opts.URLs)),
		zap.Int("wait_seconds", opts.OtherOptions.WaitSeconds),
		zap.Bool("retry_on_error", opts.OtherOptions.RetryOnError))

	recorder := metrics.NewCollector(metricsNamespace)
	proc := collector.New(trainee.NewClient(bridge), sink,
		collector.WithLogger(runLogger),
		collector.WithRecorder(recorder))
	driver := visitor.NewDriver(tabs.NewClient(bridge), newRunReporter(database, runID, runLogger), runLogger)

	summary, runErr := runWithMetrics(ctx, cfg.MetricsAddr, recorder, runLogger, func(ctx context.Context) (visitor.Summary, error) {
		return driver.Run(ctx, opts, proc)
	})

	result.Pages = summary.Pages
	result.Vectorized = summary.Vectorized
	result.Warnings = summary.Warnings
	result.Failed = summary.Failed
	if runErr == nil || errors.Is(runErr, collector.ErrIncompleteHeader) {
		result.OutputPath = sink.Path(collector.OutputFilename)
		if stats, err := sink.Stats(collector.OutputFilename); err != nil {
			runLogger.Warn("failed to stat corpus document", zap.Error(err))
		} else {
			result.OutputBytes = stats.SizeBytes
		}
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	counts := db.RunCounts{Vectorized: summary.Vectorized, Warnings: summary.Warnings, Failed: summary.Failed}
	if err := database.FinishRun(runID, counts, result.OutputPath, result.Error); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return result, runErr
}

// runWithMetrics runs fn while serving recorder on addr. An empty addr serves nothing.
func runWithMetrics(ctx context.Context, addr string, recorder *metrics.Collector, logger *zap.Logger,
	fn func(ctx context.Context) (visitor.Summary, error)) (visitor.Summary, error) {
	if addr == "" {
		return fn(ctx)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return visitor.Summary{}, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	var summary visitor.Summary
	var runErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		summary, runErr = fn(gctx)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return summary, runErr
}

// newRunReporter logs every status and records final ones in the run log.
func newRunReporter(database *db.DB, runID int64, logger *zap.Logger) visitor.Reporter {
	return visitor.ReporterFunc(func(page visitor.Page, status models.Status) {
		fields := []zap.Field{
			zap.Int("position", page.Index),
			zap.String("url", page.URL),
			zap.String("status", status.Message),
		}
		if !status.IsFinal {
			logger.Debug("page status", fields...)
			return
		}

		switch {
		case status.IsError:
			logger.Error("page failed", fields...)
		case status.Outcome == models.OutcomeWarning:
			logger.Warn("page vectorized with warnings", fields...)
		default:
			logger.Info("page vectorized", fields...)
		}

		err := database.RecordPageResult(db.PageResult{
			RunID:    runID,
			Position: page.Index,
			URL:      page.URL,
			Filename: page.Filename,
			Outcome:  string(status.Outcome),
			Message:  status.Message,
			IsError:  status.IsError,
		})
		if err != nil {
			logger.Error("failed to record page result", append(fields, zap.Error(err))...)
		}
	})
}
