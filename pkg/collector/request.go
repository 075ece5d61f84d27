package collector

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dtnitsch/corpus-collector/models"
)

const (
	// maxTriesWithRetry bounds vectorize attempts when retrying is on.
	maxTriesWithRetry = 10

	// FailureBackoff is waited after a failed vectorize request, except the last.
	FailureBackoff = 1 * time.Second
)

// settleDelay is waited before every vectorize request so the page can finish
// loading and rendering. Non-positive wait settings mean no wait.
func settleDelay(opts models.OtherOptions) time.Duration {
	if opts.WaitSeconds <= 0 {
		return 0
	}
	return time.Duration(opts.WaitSeconds) * time.Second
}

func maxTries(opts models.OtherOptions) int {
	if opts.RetryOnError {
		return maxTriesWithRetry
	}
	return 1
}

// VisitPage vectorizes the page loaded in tab, adds the vector to the corpus
// and returns the page's single final status.
func (c *Collector) VisitPage(ctx context.Context, tab models.Tab) models.Status {
	if c.run == nil {
		return c.finish(failedStatus(ErrRunNotStarted))
	}
	r := c.run
	logger := c.logger.With(zap.Int("tab_id", tab.ID), zap.String("url", tab.URL))

	vector, tries, err := c.requestVector(ctx, r.options, tab, logger)
	if err != nil {
		logger.Error("vectorize failed", zap.Int("tries", tries), zap.Error(err))
		return c.finish(failedStatus(err))
	}

	r.corpus.Append(*vector)
	logger.Info("page vectorized", zap.Int("tries", tries), zap.Int("node_count", len(vector.Nodes)))

	nullFeatures, err := c.auditVector(ctx, *vector, r.options.TraineeID)
	if err != nil {
		logger.Warn("could not resolve null feature names", zap.Error(err))
		return c.finish(models.Status{
			Message: "warning: rule(s) at position(s) " + joinInts(nullFeatures.positions) +
				" returned null values (names unavailable: " + err.Error() + ")",
			IsFinal: true,
			Outcome: models.OutcomeWarning,
		})
	}
	if len(nullFeatures.names) > 0 {
		logger.Warn("null features", zap.Strings("features", nullFeatures.names))
		return c.finish(models.Status{
			Message: "warning: rule(s) " + strings.Join(nullFeatures.names, ",") + " returned null values",
			IsFinal: true,
			Outcome: models.OutcomeWarning,
		})
	}
	return c.finish(models.Status{Message: "vectorized", IsFinal: true, Outcome: models.OutcomeVectorized})
}

// requestVector runs the settle-then-request cycle until the trainee service
// returns a vector or the try budget is spent. It reports how many tries were made.
func (c *Collector) requestVector(ctx context.Context, opts models.OtherOptions, tab models.Tab, logger *zap.Logger) (*models.FeatureVector, int, error) {
	limit := maxTries(opts)
	settle := settleDelay(opts)

	tries := 0
	for {
		tries++
		if err := c.sleep(ctx, settle); err != nil {
			return nil, tries, err
		}

		vector, err := c.trainees.VectorizeTab(ctx, tab.ID, opts.TraineeID)
		c.recorder.Attempt(err == nil)
		if err == nil {
			return vector, tries, nil
		}
		if tries >= limit {
			return nil, tries, err
		}

		logger.Warn("vectorize attempt failed, retrying",
			zap.Int("attempt", tries),
			zap.Int("max_tries", limit),
			zap.Duration("backoff", FailureBackoff),
			zap.Error(err))
		if err := c.sleep(ctx, FailureBackoff); err != nil {
			return nil, tries, err
		}
	}
}

func (c *Collector) finish(status models.Status) models.Status {
	c.recorder.Page(status.Outcome)
	return status
}

func failedStatus(err error) models.Status {
	return models.Status{
		Message: "failed: " + err.Error(),
		IsError: true,
		IsFinal: true,
		Outcome: models.OutcomeFailed,
	}
}
