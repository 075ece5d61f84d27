// Package collector visits pages on behalf of a driver, asks the trainee
// service for each page's feature vector, flags pages whose vectors contain
// null features, and at run end downloads the whole corpus as one document.
package collector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dtnitsch/corpus-collector/models"
	"github.com/dtnitsch/corpus-collector/pkg/download"
	"github.com/dtnitsch/corpus-collector/pkg/trainee"
)

// OutputFilename is the fixed name of the downloaded corpus.
const OutputFilename = "vectors.json"

// ErrRunNotStarted is returned by hooks invoked outside BeginRun/EndRun.
var ErrRunNotStarted = errors.New("collector: run not started")

// Recorder receives counters about a run. All methods must be cheap.
type Recorder interface {
	Attempt(success bool)
	Page(outcome models.Outcome)
	Downloaded(bytes int)
}

type noopRecorder struct{}

func (noopRecorder) Attempt(bool)        {}
func (noopRecorder) Page(models.Outcome) {}
func (noopRecorder) Downloaded(int)      {}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Collector) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithSleep replaces the wait used for the settle delay and the failure backoff.
func WithSleep(fn SleepFunc) Option {
	return func(c *Collector) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// Collector implements the driver's per-page and end-of-run hooks.
// It is driven by a single task and is not safe for concurrent use.
type Collector struct {
	trainees trainee.Service
	sink     download.Sink
	logger   *zap.Logger
	recorder Recorder
	sleep    SleepFunc

	run *run
}

// run is the state owned by one run: its options and its corpus.
type run struct {
	options models.OtherOptions
	corpus  *Corpus
}

// New returns a Collector using trainees for vectors and sink for the run-end download.
func New(trainees trainee.Service, sink download.Sink, opts ...Option) *Collector {
	c := &Collector{
		trainees: trainees,
		sink:     sink,
		logger:   zap.NewNop(),
		recorder: noopRecorder{},
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "collector"))
	return c
}

// BeginRun starts a run with an empty corpus.
func (c *Collector) BeginRun(_ context.Context, opts models.RunOptions) error {
	c.run = &run{
		options: opts.OtherOptions,
		corpus:  NewCorpus(),
	}
	c.logger.Info("run started",
		zap.String("trainee_id", opts.OtherOptions.TraineeID),
		zap.Int("page_count", len(opts.URLs)),
		zap.Int("wait_seconds", opts.OtherOptions.WaitSeconds),
		zap.Bool("retry_on_error", opts.OtherOptions.RetryOnError))
	return nil
}

// Viewport returns the window size the run's ruleset expects.
func (c *Collector) Viewport(ctx context.Context) (models.ViewportSize, error) {
	if c.run == nil {
		return models.ViewportSize{}, ErrRunNotStarted
	}
	meta, err := c.trainees.Trainee(ctx, c.run.options.TraineeID)
	if err != nil {
		return models.ViewportSize{}, err
	}
	return meta.ViewportSize, nil
}

// Corpus returns the current run's corpus, or nil before the first run.
func (c *Collector) Corpus() *Corpus {
	if c.run == nil {
		return nil
	}
	return c.run.corpus
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
